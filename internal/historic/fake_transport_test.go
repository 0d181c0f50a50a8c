//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package historic

import (
	"context"
	"sync"

	"github.com/cloudmanic/tvstream/internal/transport"
)

type fakeTransport struct {
	sent chan string
	recv chan string

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sent:   make(chan string, 256),
		recv:   make(chan string, 256),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Send(ctx context.Context, payload string) error {
	select {
	case t.sent <- payload:
	default:
	}
	return nil
}

func (t *fakeTransport) Recv() <-chan string { return t.recv }
func (t *fakeTransport) Err() error          { return nil }
func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}

// fakeDialer counts Dial calls and hands out whatever next returns.
type fakeDialer struct {
	mu    sync.Mutex
	calls int
	next  func(call int) (transport.Transport, error)
}

func (d *fakeDialer) Dial(ctx context.Context, url string, headers map[string][]string) (transport.Transport, error) {
	d.mu.Lock()
	call := d.calls
	d.calls++
	d.mu.Unlock()
	return d.next(call)
}

func (d *fakeDialer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
