//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/stream"
)

var (
	streamSymbols []string
	streamInterval string
	streamInitBars int
)

// streamCmd is the `stream` subcommand: a long-running subscription that
// writes newline-delimited JSON events to stdout until interrupted.
var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Stream live ticks and bars as newline-delimited JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(streamSymbols) == 0 {
			fmt.Fprintln(os.Stderr, "error: at least one -s/--symbol is required")
			os.Exit(2)
		}

		normalized, err := protocol.NormalizeInterval(streamInterval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}

		subs := make([]protocol.Subscription, len(streamSymbols))
		for i, s := range streamSymbols {
			subs[i] = protocol.Subscription{Symbol: strings.ToUpper(s), Interval: normalized}
		}

		opts := streamOptions(streamInitBars)
		st := stream.NewStreamer(newDialer(), subs, opts)
		defer st.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		ch, unsub := st.Subscribe()
		defer unsub()

		enc := json.NewEncoder(os.Stdout)
		eventCount := 0

		for {
			select {
			case <-ctx.Done():
				if eventCount == 0 {
					os.Exit(1)
				}
				return nil
			case ev, ok := <-ch:
				if !ok {
					return nil
				}
				if err := enc.Encode(eventToJSON(ev)); err != nil {
					return fmt.Errorf("write event: %w", err)
				}
				eventCount++
			}
		}
	},
}

// eventToJSON renders an Event in a shape stable enough for NDJSON
// consumers: a "kind" discriminator plus whichever typed payload applies.
func eventToJSON(ev stream.Event) map[string]interface{} {
	out := map[string]interface{}{"symbol": ev.Sub.Symbol}
	switch ev.Kind {
	case protocol.EventTick:
		out["kind"] = "tick"
		out["tick"] = ev.Tick
	case protocol.EventCandle:
		out["kind"] = "candle"
		out["interval"] = ev.Sub.Interval
		out["candle"] = ev.Candle
	case protocol.EventControl:
		out["kind"] = "control"
		out["control"] = ev.Control
	case protocol.EventMeta:
		out["kind"] = "meta"
		out["meta"] = ev.Meta
	default:
		out["kind"] = "none"
	}
	return out
}

func init() {
	streamCmd.Flags().StringArrayVarP(&streamSymbols, "symbol", "s", nil, "Symbol to subscribe to, e.g. NASDAQ:AAPL (repeatable)")
	streamCmd.Flags().StringVarP(&streamInterval, "interval", "i", "1", "Bar interval, e.g. 1, 5, D, W")
	streamCmd.Flags().IntVarP(&streamInitBars, "init-bars", "n", 300, "Initial bar countback on subscribe")
	rootCmd.AddCommand(streamCmd)
}
