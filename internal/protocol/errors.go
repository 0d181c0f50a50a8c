//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

// Package protocol implements the TradingView private WebSocket wire
// protocol: frame envelopes, interval normalization, method construction,
// frame decoding, and per-connection session state.
package protocol

import "errors"

// Sentinel errors for the taxonomy described in the error handling design.
// Callers should use errors.Is against these rather than matching strings.
var (
	// ErrInvalidInterval is returned when the interval normalizer rejects
	// a user-supplied interval string. Not retried.
	ErrInvalidInterval = errors.New("tvstream: invalid_interval")

	// ErrProtocol marks a malformed frame or unexpected method payload.
	// Callers log and drop the frame; it does not by itself force a
	// disconnect unless framing integrity is broken.
	ErrProtocol = errors.New("tvstream: protocol_error")

	// ErrHandshakeRejected is returned when the server closes the socket
	// during the handshake sequence.
	ErrHandshakeRejected = errors.New("tvstream: handshake_rejected")

	// ErrSubscribeRejected marks a server-side critical_error response to
	// a subscribe request. Streaming of other subscriptions continues.
	ErrSubscribeRejected = errors.New("tvstream: subscribe_rejected")

	// ErrFetchTimeout names the case where the caller-supplied deadline
	// elapses before a historic fetch completed. The historic fetcher does
	// not return it: on that deadline it returns the partial result with a
	// nil error.
	ErrFetchTimeout = errors.New("tvstream: fetch_timeout")

	// ErrTooManyRequests is returned immediately by the historic fetcher
	// when its concurrency cap is already exhausted.
	ErrTooManyRequests = errors.New("tvstream: too_many_requests")

	// ErrMissingDependency marks an optional runtime component that is
	// absent. Cookie discovery does not return it; a missing Safari cookie
	// store degrades to an unauthenticated result instead.
	ErrMissingDependency = errors.New("tvstream: missing_dependency")
)
