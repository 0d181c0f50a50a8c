//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/transport"
)

// State is one node of the streaming engine's connection state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateHandshaking
	StateSubscribing
	StateStreaming
	StateBackoff
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures an Engine. Zero values select the documented
// defaults.
type Options struct {
	URL              string
	OriginHeader     string
	Token            string
	SessionCookie    string
	InitialBars      int
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	QueueCapacity    int
	Logger           *slog.Logger
}

func (o *Options) setDefaults() {
	if o.URL == "" {
		o.URL = "wss://data.tradingview.com/socket.io/websocket"
	}
	if o.OriginHeader == "" {
		o.OriginHeader = "https://www.tradingview.com"
	}
	if o.Token == "" {
		o.Token = "unauthorized_user_token"
	}
	if o.InitialBars <= 0 {
		o.InitialBars = 300
	}
	if o.ReconnectInitial <= 0 {
		o.ReconnectInitial = time.Second
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = 60 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Engine owns the reconnect loop, subscription replay, and fan-out hub
// described in the streaming engine component design. It multiplexes
// every current Subscription over a single upstream connection.
type Engine struct {
	dialer  transport.Dialer
	opts    Options
	logger  *slog.Logger
	hub     *Hub
	buffer  *BarBuffer

	mu   sync.Mutex
	subs []protocol.Subscription

	stateMu sync.RWMutex
	state   State

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// NewEngine creates an Engine with the given dialer, initial subscriptions
// and options, but does not start connecting until Run is called.
func NewEngine(dialer transport.Dialer, subs []protocol.Subscription, opts Options) *Engine {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		dialer: dialer,
		opts:   opts,
		logger: opts.Logger.With("component", "stream.Engine"),
		hub:    NewHub(opts.QueueCapacity),
		buffer: NewBarBuffer(1000),
		subs:   append([]protocol.Subscription(nil), subs...),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Hub exposes the engine's fan-out hub for the public facade to subscribe
// against.
func (e *Engine) Hub() *Hub { return e.hub }

// Buffer exposes the engine's bounded bar buffer.
func (e *Engine) Buffer() *BarBuffer { return e.buffer }

// State returns the engine's current state-machine node.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// AddSubscription appends a new (symbol, interval) pair to the set the
// engine maintains. It takes effect on the next (re)connect's replay; it
// does not retroactively subscribe on the current connection.
func (e *Engine) AddSubscription(sub protocol.Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.subs {
		if s == sub {
			return
		}
	}
	e.subs = append(e.subs, sub)
}

func (e *Engine) snapshotSubs() []protocol.Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]protocol.Subscription(nil), e.subs...)
}

// Run drives the connect → handshake → subscribe → stream → backoff state
// machine until Close is called. It is meant to be run in its own
// goroutine; callers observe events via Hub().Subscribe.
func (e *Engine) Run() {
	defer close(e.done)
	defer e.setState(StateClosed)

	backoff := e.opts.ReconnectInitial

	for {
		if e.ctx.Err() != nil {
			return
		}

		e.setState(StateConnecting)
		tr, err := e.dialer.Dial(e.ctx, e.opts.URL, e.dialHeaders())
		if err != nil {
			e.logger.Warn("connect failed", "error", err)
			backoff = e.sleepBackoff(backoff)
			continue
		}

		sess := protocol.NewSession()

		e.setState(StateHandshaking)
		if err := e.handshake(tr, sess); err != nil {
			e.logger.Warn("handshake failed", "error", err)
			tr.Close()
			backoff = e.sleepBackoff(backoff)
			continue
		}

		e.setState(StateSubscribing)
		if err := e.subscribeAll(tr, sess); err != nil {
			e.logger.Warn("subscribe failed", "error", err)
			tr.Close()
			backoff = e.sleepBackoff(backoff)
			continue
		}

		backoff = e.opts.ReconnectInitial // reset on a fully successful connect
		e.setState(StateStreaming)
		e.readLoop(tr, sess)
		tr.Close()

		if e.ctx.Err() != nil {
			return
		}
		backoff = e.sleepBackoff(backoff)
	}
}

func (e *Engine) dialHeaders() map[string][]string {
	h := map[string][]string{
		"Origin": {e.opts.OriginHeader},
	}
	if e.opts.SessionCookie != "" {
		h["Cookie"] = []string{"sessionid=" + e.opts.SessionCookie}
	}
	return h
}

// sleepBackoff waits out the current backoff (jittered ±20%) unless the
// engine is closed first, and returns the next backoff to use.
func (e *Engine) sleepBackoff(current time.Duration) time.Duration {
	e.setState(StateBackoff)

	jittered := jitter(current)
	select {
	case <-time.After(jittered):
	case <-e.ctx.Done():
		return current
	}

	next := current * 2
	if next > e.opts.ReconnectMax {
		next = e.opts.ReconnectMax
	}
	return next
}

func jitter(d time.Duration) time.Duration {
	factor := 0.8 + rand.Float64()*0.4 // ±20%
	return time.Duration(float64(d) * factor)
}

func (e *Engine) send(tr transport.Transport, frame string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: build frame: %v", protocol.ErrProtocol, err)
	}
	return tr.Send(e.ctx, frame)
}

func (e *Engine) handshake(tr transport.Transport, sess *protocol.Session) error {
	return sess.EnsureHandshake(func() error {
		if err := e.send(tr, protocol.BuildSetAuthToken(e.opts.Token)); err != nil {
			return fmt.Errorf("%w: %v", protocol.ErrHandshakeRejected, err)
		}
		if err := e.send(tr, protocol.BuildChartCreateSession(sess.ChartSession)); err != nil {
			return fmt.Errorf("%w: %v", protocol.ErrHandshakeRejected, err)
		}
		if err := e.send(tr, protocol.BuildQuoteCreateSession(sess.QuoteSession)); err != nil {
			return fmt.Errorf("%w: %v", protocol.ErrHandshakeRejected, err)
		}
		if err := e.send(tr, protocol.BuildQuoteSetFields(sess.QuoteSession)); err != nil {
			return fmt.Errorf("%w: %v", protocol.ErrHandshakeRejected, err)
		}
		return nil
	})
}

// subscribeAll replays every current subscription on a fresh session:
// quote_add_symbols once per unique symbol, then resolve_symbol and
// create_series once per subscription, in that order.
func (e *Engine) subscribeAll(tr transport.Transport, sess *protocol.Session) error {
	for _, sub := range e.snapshotSubs() {
		if sess.MarkSymbolAnnounced(sub.Symbol) {
			if err := e.send(tr, protocol.BuildQuoteAddSymbols(sess.QuoteSession, sub.Symbol)); err != nil {
				return err
			}
		}

		seriesID := protocol.NewSeriesID()
		sess.RegisterSeries(seriesID, sub)

		if err := e.send(tr, protocol.BuildResolveSymbol(sess.ChartSession, seriesID, sub.Symbol)); err != nil {
			return err
		}
		if err := e.send(tr, protocol.BuildCreateSeries(sess.ChartSession, seriesID, seriesID, sub.Interval, e.opts.InitialBars)); err != nil {
			return err
		}
	}
	return nil
}

// readLoop pulls transport frames until the connection fails or the
// engine is closed. Heartbeats are echoed before any further parsing is
// attempted on the frame that carried them.
func (e *Engine) readLoop(tr transport.Transport, sess *protocol.Session) {
	var accum strings.Builder

	for {
		select {
		case <-e.ctx.Done():
			return
		case raw, ok := <-tr.Recv():
			if !ok {
				if err := tr.Err(); err != nil {
					e.logger.Warn("transport read error", "error", err)
				}
				return
			}

			if strings.HasPrefix(raw, "~m~") && strings.Contains(raw, "~h~") {
				if err := tr.Send(e.ctx, raw); err != nil {
					e.logger.Warn("heartbeat echo failed", "error", err)
					return
				}
				continue
			}

			accum.WriteString(raw)
			frames, remainder := protocol.Split(accum.String())
			accum.Reset()
			accum.WriteString(remainder)

			for _, frame := range frames {
				events, err := protocol.Decode(frame, sess)
				if err != nil {
					e.logger.Warn("protocol error decoding frame", "error", err, "frame", frame)
					continue
				}
				for _, ev := range events {
					e.dispatch(ev)
				}
			}
		}
	}
}

func (e *Engine) dispatch(ev protocol.DecodedEvent) {
	var sub protocol.Subscription
	switch ev.Kind {
	case protocol.EventCandle:
		e.buffer.Append(*ev.Candle)
		sub = protocol.Subscription{Symbol: ev.Candle.Symbol, Interval: ev.Candle.Interval}
	case protocol.EventTick:
		sub = protocol.Subscription{Symbol: ev.Tick.Symbol}
	}
	e.hub.Publish(Event{Sub: sub, DecodedEvent: ev})
}

// Close cancels the reconnect loop, closes the hub, and waits for the Run
// goroutine to exit. Close is idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		<-e.done
		e.hub.Close()
	})
}
