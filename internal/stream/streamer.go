//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package stream

import (
	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/transport"
)

// Streamer is the public facade over an Engine: newStreamer(subscriptions,
// options) plus subscribe/callback/close.
type Streamer struct {
	engine *Engine
}

// NewStreamer constructs and starts a Streamer for the given subscriptions.
func NewStreamer(dialer transport.Dialer, subs []protocol.Subscription, opts Options) *Streamer {
	engine := NewEngine(dialer, subs, opts)
	go engine.Run()
	return &Streamer{engine: engine}
}

// Subscribe returns a channel of every decoded event (ticks and candles)
// across all of the streamer's subscriptions, plus an unsubscribe
// function. The channel closes when Close is called or Unsubscribe is
// invoked.
func (s *Streamer) Subscribe() (<-chan Event, func()) {
	return s.engine.Hub().Subscribe()
}

// SubscribeCallback registers fn to be invoked for every event matching
// pair. If tick is true, only Tick events are delivered; otherwise only
// Candle events are delivered. The returned dispose function stops
// delivery and releases the underlying subscription.
func (s *Streamer) SubscribeCallback(pair protocol.Subscription, tick bool, fn func(Event)) (dispose func()) {
	ch, unsubscribe := s.engine.Hub().Subscribe()

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if tick && ev.Kind != protocol.EventTick {
					continue
				}
				if !tick && ev.Kind != protocol.EventCandle {
					continue
				}
				if ev.Sub.Symbol != "" && ev.Sub.Symbol != pair.Symbol {
					continue
				}
				if !tick && ev.Sub.Interval != "" && ev.Sub.Interval != pair.Interval {
					continue
				}
				fn(ev)
			case <-stop:
				return
			}
		}
	}()

	return func() {
		close(stop)
		unsubscribe()
	}
}

// LatestBars returns the current buffered snapshot for (symbol, interval).
func (s *Streamer) LatestBars(symbol, interval string) []protocol.Candle {
	return s.engine.Buffer().Snapshot(symbol, interval)
}

// State reports the engine's current connection state, for diagnostics.
func (s *Streamer) State() State {
	return s.engine.State()
}

// Close cancels the reconnect loop, closes the transport and hub, and
// causes every subscriber channel to terminate cleanly. Close is
// idempotent.
func (s *Streamer) Close() {
	s.engine.Close()
}
