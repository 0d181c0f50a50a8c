//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

// Package transport abstracts the underlying WebSocket connection so the
// protocol and streaming engine packages depend only on send/receive/close
// semantics, not on a specific library.
package transport

import "context"

// Transport is the minimal surface the connection driver needs from a
// WebSocket-like connection: send a text frame, receive an async stream
// of inbound text frames, and close. TLS, opcode framing, and ping/pong
// at the transport level are the implementation's concern, not the
// protocol layer's.
type Transport interface {
	// Send writes a single text frame.
	Send(ctx context.Context, payload string) error

	// Recv returns a channel of inbound text frames. The channel is
	// closed when the transport is closed or encounters a fatal read
	// error; Err reports which.
	Recv() <-chan string

	// Err returns the error that caused Recv's channel to close, or nil
	// if Close was called without a prior read error.
	Err() error

	// Close closes the connection. It is safe to call more than once.
	Close() error
}

// Dialer opens a new Transport to a URL with the given request headers
// (used to set Origin and Cookie per the wire protocol's authentication
// requirements).
type Dialer interface {
	Dial(ctx context.Context, url string, headers map[string][]string) (Transport, error)
}
