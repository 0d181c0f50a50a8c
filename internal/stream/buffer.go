//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

// Package stream implements the long-lived streaming engine: the
// reconnect state machine, the fan-out hub, and the bounded bar buffer.
package stream

import (
	"sync"

	"github.com/cloudmanic/tvstream/internal/protocol"
)

// BarBuffer holds at most N recent candles per (symbol, interval) key.
// Append is O(1); Snapshot returns a copy ordered by arrival. A BarBuffer
// is safe for concurrent use.
type BarBuffer struct {
	mu   sync.Mutex
	size int
	data map[string][]protocol.Candle
	head map[string]int
}

// NewBarBuffer creates a BarBuffer that retains at most size bars per key.
func NewBarBuffer(size int) *BarBuffer {
	if size <= 0 {
		size = 1
	}
	return &BarBuffer{
		size: size,
		data: make(map[string][]protocol.Candle),
		head: make(map[string]int),
	}
}

func key(symbol, interval string) string {
	return symbol + "|" + interval
}

// Append adds c to the ring for its (Symbol, Interval) key, evicting the
// oldest entry once the ring reaches its configured size.
func (b *BarBuffer) Append(c protocol.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(c.Symbol, c.Interval)
	buf := b.data[k]

	if len(buf) < b.size {
		b.data[k] = append(buf, c)
		return
	}

	h := b.head[k]
	buf[h] = c
	b.head[k] = (h + 1) % b.size
}

// Snapshot returns the candles currently buffered for (symbol, interval)
// in arrival order, oldest first.
func (b *BarBuffer) Snapshot(symbol, interval string) []protocol.Candle {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(symbol, interval)
	buf := b.data[k]
	if len(buf) < b.size {
		out := make([]protocol.Candle, len(buf))
		copy(out, buf)
		return out
	}

	h := b.head[k]
	out := make([]protocol.Candle, 0, b.size)
	out = append(out, buf[h:]...)
	out = append(out, buf[:h]...)
	return out
}
