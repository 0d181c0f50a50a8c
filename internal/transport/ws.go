//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSDialer implements Dialer using gorilla/websocket.
type WSDialer struct {
	// Debug, when true, makes the resulting connections log every raw
	// inbound/outbound frame at slog.LevelDebug.
	Debug  bool
	Logger *slog.Logger
}

func (d *WSDialer) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Dial opens a WebSocket connection to url carrying the given request
// headers and returns a Transport wrapping it.
func (d *WSDialer) Dial(ctx context.Context, url string, headers map[string][]string) (Transport, error) {
	h := http.Header(headers)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, h)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}

	wsConn := &wsTransport{
		conn:   conn,
		recvCh: make(chan string, 64),
		done:   make(chan struct{}),
		debug:  d.Debug,
		logger: d.logger().With("component", "transport"),
	}
	go wsConn.readLoop()
	return wsConn, nil
}

// wsTransport is the gorilla/websocket-backed Transport implementation.
// Writes are serialized with a mutex since gorilla/websocket connections
// are not safe for concurrent writers.
type wsTransport struct {
	conn   *websocket.Conn
	recvCh chan string
	done   chan struct{}
	debug  bool
	logger *slog.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	readErr   error
	readErrMu sync.Mutex
}

func (t *wsTransport) Send(ctx context.Context, payload string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.debug {
		t.logger.Debug("send", "frame", payload)
	}

	if err := t.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (t *wsTransport) Recv() <-chan string {
	return t.recvCh
}

func (t *wsTransport) Err() error {
	t.readErrMu.Lock()
	defer t.readErrMu.Unlock()
	return t.readErr
}

func (t *wsTransport) setErr(err error) {
	t.readErrMu.Lock()
	t.readErr = err
	t.readErrMu.Unlock()
}

func (t *wsTransport) readLoop() {
	defer close(t.recvCh)

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				// Close already initiated; a read error here is expected.
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.setErr(fmt.Errorf("transport: read: %w", err))
				}
			}
			return
		}

		frame := string(message)
		if t.debug {
			t.logger.Debug("recv", "frame", frame)
		}

		select {
		case t.recvCh <- frame:
		case <-t.done:
			return
		}
	}
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)

		t.writeMu.Lock()
		writeErr := t.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		t.writeMu.Unlock()

		closeErr := t.conn.Close()
		if writeErr != nil {
			err = fmt.Errorf("transport: close: %w", writeErr)
			return
		}
		if closeErr != nil {
			err = fmt.Errorf("transport: close: %w", closeErr)
		}
	})
	return err
}
