//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudmanic/tvstream/internal/archive"
	"github.com/cloudmanic/tvstream/internal/historic"
	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/stream"
)

var (
	candleSymbol    string
	candleInterval  string
	candleLimit     int
	candleExportS3  string
	candleHistDeadline time.Duration
)

// candlesCmd is the parent command for the live-table and one-shot
// historic candle views.
var candlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Inspect bars as a live or one-shot table",
}

// candlesLiveCmd prints bars for a single symbol/interval as a
// continuously updating table until interrupted.
var candlesLiveCmd = &cobra.Command{
	Use:   "live",
	Short: "Print live bars for a symbol as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if candleSymbol == "" {
			fmt.Fprintln(os.Stderr, "error: --symbol is required")
			os.Exit(2)
		}
		interval, err := protocol.NormalizeInterval(candleInterval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}

		sub := protocol.Subscription{Symbol: strings.ToUpper(candleSymbol), Interval: interval}
		opts := streamOptions(candleLimit)
		st := stream.NewStreamer(newDialer(), []protocol.Subscription{sub}, opts)
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

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "OPEN TIME\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\tCLOSED")

		ch, unsub := st.Subscribe()
		defer unsub()

		emitted := false
		for {
			select {
			case <-ctx.Done():
				w.Flush()
				if !emitted {
					os.Exit(1)
				}
				return nil
			case ev, ok := <-ch:
				if !ok {
					w.Flush()
					return nil
				}
				if ev.Kind != protocol.EventCandle || ev.Candle == nil {
					continue
				}
				if ev.Candle.Symbol != sub.Symbol || ev.Candle.Interval != sub.Interval {
					continue
				}
				writeCandleRow(w, *ev.Candle)
				w.Flush()
				emitted = true
			}
		}
	},
}

// candlesHistCmd performs a one-shot historic fetch and prints the
// result as a table, optionally archiving it to an S3-compatible store.
var candlesHistCmd = &cobra.Command{
	Use:   "hist",
	Short: "Fetch a one-shot window of historic bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		if candleSymbol == "" {
			fmt.Fprintln(os.Stderr, "error: --symbol is required")
			os.Exit(2)
		}
		interval, err := protocol.NormalizeInterval(candleInterval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}

		sessionID, authToken := resolveCredentials()
		token := authToken
		if token == "" {
			token = "unauthorized_user_token"
		}

		fetcher := historic.NewFetcher(newDialer(), token, sessionID, "", nil)

		candles, err := fetcher.Get(cmd.Context(), strings.ToUpper(candleSymbol), interval, candleLimit, candleHistDeadline)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		if outputFormat == "json" {
			if err := printJSON(candles); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OPEN TIME\tOPEN\tHIGH\tLOW\tCLOSE\tVOLUME\tCLOSED")
			for _, c := range candles {
				writeCandleRow(w, c)
			}
			w.Flush()
		}

		if candleExportS3 != "" {
			bucket, key, err := archive.ParseBucketKey(candleExportS3)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(2)
			}

			cfg, cfgErr := loadArchiveConfig()
			if cfgErr != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", cfgErr)
				os.Exit(1)
			}

			client := archive.NewClient(cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Endpoint)
			if err := client.Export(cmd.Context(), bucket, key, candles); err != nil {
				fmt.Fprintf(os.Stderr, "error exporting to s3: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "exported %d candles to s3://%s/%s\n", len(candles), bucket, key)
		}

		return nil
	},
}

// writeCandleRow writes a single tab-separated candle row to w.
func writeCandleRow(w *tabwriter.Writer, c protocol.Candle) {
	vol := "-"
	if c.Volume != nil {
		vol = c.Volume.String()
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
		c.TSOpen.Format(time.RFC3339),
		c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(),
		vol, c.Closed)
}

func init() {
	candlesCmd.PersistentFlags().StringVar(&candleSymbol, "symbol", "", "Symbol, e.g. NASDAQ:AAPL")
	candlesCmd.PersistentFlags().StringVar(&candleInterval, "interval", "1", "Bar interval, e.g. 1, 5, D, W")

	candlesLiveCmd.Flags().IntVar(&candleLimit, "init-bars", 300, "Initial bar countback on subscribe")

	candlesHistCmd.Flags().IntVar(&candleLimit, "limit", 300, "Number of historic bars to fetch (clamped to a 300 minimum)")
	candlesHistCmd.Flags().DurationVar(&candleHistDeadline, "deadline", 10*time.Second, "Maximum time to wait for the fetch to complete before returning a partial result")
	candlesHistCmd.Flags().StringVar(&candleExportS3, "export-s3", "", "bucket/key to archive the fetched candles to as CSV")

	candlesCmd.AddCommand(candlesLiveCmd)
	candlesCmd.AddCommand(candlesHistCmd)
	rootCmd.AddCommand(candlesCmd)
}
