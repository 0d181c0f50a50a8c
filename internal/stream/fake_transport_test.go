//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/transport"
)

// fakeTransport is a controllable in-memory transport.Transport used to
// drive the engine's state machine deterministically in tests, without a
// real network connection.
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

func (t *fakeTransport) Err() error { return nil }

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		close(t.recv)
	})
	return nil
}

// fakeDialer counts Dial calls and hands out whatever next returns for
// each call index.
type fakeDialer struct {
	mu    sync.Mutex
	calls int

	// next is invoked for each Dial call with the 0-based call index.
	next func(call int) (transport.Transport, error)
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

var errFakeDialFailed = errors.New("fake dial failed")

// seriesIDFromSentFrames scans sent frames for a create_series call and
// extracts the seriesId the engine generated, so tests can construct a
// matching "du" frame without hard-coding the random id.
func seriesIDFromSentFrames(sentFrames []string) (string, bool) {
	for _, raw := range sentFrames {
		bodies, _ := protocol.Split(raw)
		for _, body := range bodies {
			var msg struct {
				M string        `json:"m"`
				P []interface{} `json:"p"`
			}
			if err := json.Unmarshal([]byte(body), &msg); err != nil {
				continue
			}
			if msg.M == "create_series" && len(msg.P) >= 2 {
				if id, ok := msg.P[1].(string); ok {
					return id, true
				}
			}
		}
	}
	return "", false
}
