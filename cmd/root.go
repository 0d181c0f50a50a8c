//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	outputFormat string
	debug        bool
)

// rootCmd is the base command for the tvstream CLI. All subcommands are
// registered as children of this command.
var rootCmd = &cobra.Command{
	Use:   "tvstream",
	Short: "Stream TradingView quotes and bars from the command line",
	Long:  "A command-line client for the TradingView private WebSocket service: live ticks, live bars, and one-shot historic candle fetches.",
}

// Execute runs the root command and exits with a non-zero status code if
// any error occurs during command execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// init registers persistent flags and loads environment variables from the
// .env file if present. The debug flag raises the default slog level so
// raw frame traffic is visible.
func init() {
	cobra.OnInitialize(loadEnv, configureLogging)
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Log raw protocol frames at debug level")
}

// loadEnv attempts to load environment variables from a .env file in the
// current working directory. Errors are silently ignored since the .env
// file is optional.
func loadEnv() {
	_ = godotenv.Load()
}

func configureLogging() {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
