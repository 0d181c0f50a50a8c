//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decode parses a single unwrapped payload (already stripped of its
// ~m~<len>~m~ envelope) into zero or more typed events. Most frames
// produce at most one event; "du"/"timescale_update" frames carry a bar
// per series entry and may fan out into several Candle events from a
// single payload, so Decode returns a slice rather than a single value.
//
// Numbers are decoded with json.Number so OHLC values and prices can be
// parsed straight into decimal.Decimal without an intermediate float64
// round trip.
func Decode(payload string, sess *Session) ([]DecodedEvent, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || trimmed[0] != '{' {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var msg struct {
		M string        `json:"m"`
		P []interface{} `json:"p"`
	}
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if msg.M == "" {
		return nil, nil
	}

	switch msg.M {
	case "qsd":
		return decodeTick(msg.P)
	case "du", "timescale_update":
		return decodeCandles(msg.P, sess), nil
	case "series_completed":
		return decodeControl(msg.P), nil
	case "symbol_resolved":
		return decodeMeta(msg.P), nil
	default:
		return nil, nil
	}
}

func decodeTick(p []interface{}) ([]DecodedEvent, error) {
	if len(p) < 2 {
		return nil, nil
	}
	obj, ok := p[1].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	symbol, _ := obj["n"].(string)
	vObj, ok := obj["v"].(map[string]interface{})
	if !ok || symbol == "" {
		return nil, nil
	}

	lpRaw, lpOK := vObj["lp"]
	volRaw, volOK := vObj["volume"]
	updRaw, updOK := vObj["upd"]
	if !lpOK || !volOK || !updOK {
		return nil, nil
	}

	price, err := numberToDecimal(lpRaw)
	if err != nil {
		return nil, nil
	}
	volume, err := numberToDecimal(volRaw)
	if err != nil {
		return nil, nil
	}
	ts, err := numberToTime(updRaw)
	if err != nil {
		return nil, nil
	}

	tick := &Tick{Symbol: symbol, Price: price, Volume: volume, TS: ts}
	return []DecodedEvent{{Kind: EventTick, Tick: tick}}, nil
}

func decodeCandles(p []interface{}, sess *Session) []DecodedEvent {
	if len(p) < 2 || sess == nil {
		return nil
	}
	seriesMap, ok := p[1].(map[string]interface{})
	if !ok {
		return nil
	}

	var events []DecodedEvent
	for seriesID, raw := range seriesMap {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		sub, known := sess.LookupSeries(seriesID)
		if !known {
			// Unknown seriesId: silently dropped, per the protocol's
			// boundary behavior for stale or foreign series.
			continue
		}

		sArr, _ := entry["s"].([]interface{})

		var closeOverride *time.Time
		if lbs, ok := entry["lbs"].(map[string]interface{}); ok {
			if raw, ok := lbs["bar_close_time"]; ok {
				if t, err := numberToTime(raw); err == nil {
					closeOverride = &t
				}
			}
		}

		for _, se := range sArr {
			seObj, ok := se.(map[string]interface{})
			if !ok {
				continue
			}
			vArr, ok := seObj["v"].([]interface{})
			if !ok || len(vArr) < 5 {
				continue
			}

			candle, err := buildCandle(sub, vArr, closeOverride)
			if err != nil {
				continue
			}
			events = append(events, DecodedEvent{Kind: EventCandle, Candle: candle})
		}
	}

	return events
}

func buildCandle(sub Subscription, v []interface{}, closeOverride *time.Time) (*Candle, error) {
	tsOpen, err := numberToTime(v[0])
	if err != nil {
		return nil, err
	}
	open, err := numberToDecimal(v[1])
	if err != nil {
		return nil, err
	}
	high, err := numberToDecimal(v[2])
	if err != nil {
		return nil, err
	}
	low, err := numberToDecimal(v[3])
	if err != nil {
		return nil, err
	}
	closePrice, err := numberToDecimal(v[4])
	if err != nil {
		return nil, err
	}

	var volume *decimal.Decimal
	if len(v) > 5 {
		if vol, err := numberToDecimal(v[5]); err == nil {
			volume = &vol
		}
	}

	closed := false
	if len(v) > 6 {
		closed = truthy(v[6])
	}

	tsClose := tsOpen.Add(intervalDuration(sub.Interval))
	if closeOverride != nil {
		tsClose = *closeOverride
	}

	return &Candle{
		Symbol:   sub.Symbol,
		Interval: sub.Interval,
		TSOpen:   tsOpen,
		TSClose:  tsClose,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
		Closed:   closed,
	}, nil
}

func decodeControl(p []interface{}) []DecodedEvent {
	if len(p) < 2 {
		return nil
	}
	subKey, ok := p[1].(string)
	if !ok {
		return nil
	}
	return []DecodedEvent{{Kind: EventControl, Control: &ControlEvent{SubKey: subKey, Status: "completed"}}}
}

func decodeMeta(p []interface{}) []DecodedEvent {
	if len(p) < 3 {
		return nil
	}
	info, ok := p[2].(map[string]interface{})
	if !ok {
		return nil
	}
	return []DecodedEvent{{Kind: EventMeta, Meta: &MetaEvent{Info: info}}}
}

// numberToDecimal converts a JSON-decoded numeric value (json.Number when
// decoded with UseNumber, but also tolerates plain strings and float64
// for callers that build values programmatically) into a decimal.Decimal
// without round-tripping through binary floating point.
func numberToDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(n)
	case float64:
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unsupported numeric type %T", ErrProtocol, v)
	}
}

// numberToTime converts a JSON-decoded timestamp to UTC. Values greater
// than 1e12 are treated as milliseconds since the epoch; smaller values
// are seconds.
func numberToTime(v interface{}) (time.Time, error) {
	f, err := numberToFloat(v)
	if err != nil {
		return time.Time{}, err
	}
	if f > 1e12 {
		return time.UnixMilli(int64(f)).UTC(), nil
	}
	return time.Unix(int64(f), 0).UTC(), nil
}

func numberToFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: unsupported numeric type %T", ErrProtocol, v)
	}
}

// truthy mirrors the dynamically-typed language's notion of truthiness
// for the optional 7th "closed" element of a bar's v array.
func truthy(v interface{}) bool {
	switch n := v.(type) {
	case bool:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f != 0
	case float64:
		return n != 0
	case string:
		return n != "" && n != "0" && n != "false"
	default:
		return false
	}
}

// IntervalDuration exposes intervalDuration for callers that need to
// derive tsClose outside of decode.
func IntervalDuration(code string) time.Duration {
	return intervalDuration(code)
}

func intervalDuration(code string) time.Duration {
	switch code {
	case "D":
		return 24 * time.Hour
	case "W":
		return 7 * 24 * time.Hour
	case "M":
		return 30 * 24 * time.Hour
	}
	if n, err := strconv.Atoi(code); err == nil {
		return time.Duration(n) * time.Minute
	}
	return 0
}
