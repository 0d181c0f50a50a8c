//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package historic

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/transport"
)

const (
	semaphoreCapacity = 3
	defaultDeadline   = 10 * time.Second
	defaultURL        = "wss://data.tradingview.com/socket.io/websocket"
)

// processSem is the concurrency cap shared by every Fetcher in the process.
var processSem = make(chan struct{}, semaphoreCapacity)

// Fetcher drives one-shot historic-candle sessions against dialer, bounded
// by a process-wide concurrency cap and backed by a short-TTL cache. A
// Fetcher is safe for concurrent use.
type Fetcher struct {
	dialer transport.Dialer
	logger *slog.Logger
	sem    chan struct{}
	cache  *cache

	originHeader  string
	token         string
	sessionCookie string
}

// NewFetcher constructs a Fetcher. token and sessionCookie mirror the
// Engine's auth options; an empty token falls back to the unauthenticated
// default at fetch time.
func NewFetcher(dialer transport.Dialer, token, sessionCookie, originHeader string, logger *slog.Logger) *Fetcher {
	if originHeader == "" {
		originHeader = "https://www.tradingview.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		dialer:        dialer,
		logger:        logger.With("component", "historic.Fetcher"),
		sem:           processSem,
		cache:         newCache(),
		originHeader:  originHeader,
		token:         token,
		sessionCookie: sessionCookie,
	}
}

// Get fetches the last n closed candles for (symbol, interval), honoring a
// per-call deadline (0 selects the 10s default). A cache hit within the
// last 60s for the same (symbol, interval, n) returns immediately without
// opening a transport. If the concurrency cap is already saturated, Get
// fails fast with protocol.ErrTooManyRequests rather than queuing.
func (f *Fetcher) Get(ctx context.Context, symbol, interval string, n int, deadline time.Duration) ([]protocol.Candle, error) {
	normalized, err := protocol.NormalizeInterval(interval)
	if err != nil {
		return nil, err
	}
	n = protocol.ClampHistory(n)
	key := cacheKey(symbol, normalized, n)

	if cached, ok := f.cache.get(key); ok {
		return cached, nil
	}

	select {
	case f.sem <- struct{}{}:
	default:
		return nil, fmt.Errorf("%w: historic fetcher at capacity (%d concurrent)", protocol.ErrTooManyRequests, semaphoreCapacity)
	}
	defer func() { <-f.sem }()

	if deadline <= 0 {
		deadline = defaultDeadline
	}
	fetchCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	candles, err := f.run(fetchCtx, symbol, normalized, n)
	if err != nil {
		return nil, err
	}

	f.cache.put(key, candles)
	return candles, nil
}

func (f *Fetcher) run(ctx context.Context, symbol, interval string, n int) ([]protocol.Candle, error) {
	headers := map[string][]string{"Origin": {f.originHeader}}
	if f.sessionCookie != "" {
		headers["Cookie"] = []string{"sessionid=" + f.sessionCookie}
	}

	tr, err := f.dialer.Dial(ctx, defaultURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", protocol.ErrProtocol, err)
	}
	defer tr.Close()

	sess := protocol.NewSession()
	token := f.token
	if token == "" {
		token = "unauthorized_user_token"
	}
	seriesID := protocol.NewSeriesID()
	sub := protocol.Subscription{Symbol: symbol, Interval: interval}
	sess.RegisterSeries(seriesID, sub)

	sends := []struct {
		frame string
		err   error
	}{}
	addSend := func(frame string, err error) {
		sends = append(sends, struct {
			frame string
			err   error
		}{frame, err})
	}
	addSend(protocol.BuildSetAuthToken(token))
	addSend(protocol.BuildChartCreateSession(sess.ChartSession))
	addSend(protocol.BuildResolveSymbol(sess.ChartSession, seriesID, symbol))
	addSend(protocol.BuildCreateSeries(sess.ChartSession, seriesID, seriesID, interval, n))

	for _, s := range sends {
		if s.err != nil {
			return nil, fmt.Errorf("%w: build frame: %v", protocol.ErrProtocol, s.err)
		}
		if err := tr.Send(ctx, s.frame); err != nil {
			return nil, fmt.Errorf("%w: send: %v", protocol.ErrProtocol, err)
		}
	}

	byOpen := make(map[int64]protocol.Candle)
	completed := false

	var accum strings.Builder
	for {
		if completed && len(byOpen) >= n {
			break
		}
		select {
		case <-ctx.Done():
			f.logger.Warn("historic fetch deadline elapsed", "symbol", symbol, "interval", interval, "collected", len(byOpen))
			return dedupLatest(byOpen, n), nil
		case raw, ok := <-tr.Recv():
			if !ok {
				return dedupLatest(byOpen, n), nil
			}
			if strings.HasPrefix(raw, "~m~") && strings.Contains(raw, "~h~") {
				_ = tr.Send(ctx, raw)
				continue
			}

			accum.WriteString(raw)
			frames, remainder := protocol.Split(accum.String())
			accum.Reset()
			accum.WriteString(remainder)

			for _, frame := range frames {
				events, err := protocol.Decode(frame, sess)
				if err != nil {
					continue
				}
				for _, ev := range events {
					switch ev.Kind {
					case protocol.EventCandle:
						byOpen[ev.Candle.TSOpen.Unix()] = *ev.Candle
					case protocol.EventControl:
						completed = true
					}
				}
			}
		}
	}

	return dedupLatest(byOpen, n), nil
}

// dedupLatest returns up to n candles sorted by tsOpen ascending; the
// dedup itself is implicit since byOpen is keyed by tsOpen.
func dedupLatest(byOpen map[int64]protocol.Candle, n int) []protocol.Candle {
	out := make([]protocol.Candle, 0, len(byOpen))
	for _, c := range byOpen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TSOpen.Before(out[j].TSOpen) })
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
