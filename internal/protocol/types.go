//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package protocol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription identifies a single (symbol, interval) pair a streamer has
// been asked to follow. Symbol is an uppercase exchange-qualified
// identifier (EXCHANGE:TICKER); Interval is a normalized resolution code.
// Subscription is a plain value type: two Subscriptions with equal fields
// are the same subscription, so duplicate Subscribe calls are idempotent.
type Subscription struct {
	Symbol   string
	Interval string
}

// Key returns a stable string key for use in maps, e.g. for deduplicating
// identical subscriptions. The session's series registry is keyed by
// seriesId, not by this key.
func (s Subscription) Key() string {
	return s.Symbol + "|" + s.Interval
}

// Tick is an immutable last-price/volume update for a symbol, decoded
// from a "qsd" frame.
type Tick struct {
	Symbol string
	Price  decimal.Decimal
	Volume decimal.Decimal
	TS     time.Time
}

// Candle is an immutable OHLCV record for one bar of a (symbol, interval)
// subscription, decoded from a "du" or "timescale_update" frame. Open,
// High, Low and Close preserve the wire's decimal text exactly; Volume is
// nullable because some server payloads omit it.
type Candle struct {
	Symbol   string
	Interval string
	TSOpen   time.Time
	TSClose  time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   *decimal.Decimal
	Closed   bool
}

// ControlEvent is a completion marker emitted for a "series_completed"
// frame, used by the historic fetcher to know the requested snapshot has
// finished arriving.
type ControlEvent struct {
	SubKey string
	Status string
}

// MetaEvent carries optional "symbol_resolved" metadata. Consumers are
// never required to act on it.
type MetaEvent struct {
	Info map[string]interface{}
}

// EventKind discriminates the variant held by a DecodedEvent.
type EventKind int

const (
	// EventNone means the frame decoded to nothing actionable.
	EventNone EventKind = iota
	EventTick
	EventCandle
	EventControl
	EventMeta
)

// DecodedEvent is the tagged union returned by the frame decoder. Exactly
// one of Tick/Candle/Control/Meta is populated, matching Kind.
type DecodedEvent struct {
	Kind    EventKind
	Tick    *Tick
	Candle  *Candle
	Control *ControlEvent
	Meta    *MetaEvent
}
