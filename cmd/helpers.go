//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudmanic/tvstream/internal/auth"
	"github.com/cloudmanic/tvstream/internal/config"
	"github.com/cloudmanic/tvstream/internal/stream"
	"github.com/cloudmanic/tvstream/internal/transport"
)

// resolveCredentials resolves the session ID and auth token to stream
// with, trying the config-aware Credentials() helper first (env vars,
// then the saved config file) and falling back to browser cookie
// discovery when neither source produced anything.
func resolveCredentials() (sessionID, authToken string) {
	sessionID, authToken, err := config.Credentials()
	if err != nil {
		slog.Warn("failed to load config, falling back to cookie discovery", "error", err)
	}
	if sessionID != "" || authToken != "" {
		return sessionID, authToken
	}

	cookies := auth.Discover()
	return cookies.SessionID, cookies.AuthToken
}

// newDialer builds the WebSocket dialer used by both the live streamer and
// the historic fetcher commands.
func newDialer() transport.Dialer {
	return &transport.WSDialer{Debug: debug, Logger: slog.Default()}
}

// streamOptions builds stream.Options from resolved credentials and CLI
// flags common to the streaming commands.
func streamOptions(initialBars int) stream.Options {
	sessionID, authToken := resolveCredentials()
	token := authToken
	if token == "" {
		token = "unauthorized_user_token"
	}
	return stream.Options{
		Token:         token,
		SessionCookie: sessionID,
		InitialBars:   initialBars,
		Logger:        slog.Default(),
	}
}

// loadArchiveConfig loads the saved config and overrides its S3 fields
// from the environment, so `candles hist --export-s3` works either from
// `config init`-saved credentials or from TV_S3_* environment variables
// without requiring both.
func loadArchiveConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := os.Getenv("TV_S3_ACCESS_KEY"); v != "" {
		cfg.S3AccessKey = v
	}
	if v := os.Getenv("TV_S3_SECRET_KEY"); v != "" {
		cfg.S3SecretKey = v
	}
	if v := os.Getenv("TV_S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = v
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("S3 export requires access/secret credentials; run `tvstream config init` or set TV_S3_ACCESS_KEY/TV_S3_SECRET_KEY")
	}
	return cfg, nil
}

// maskString obscures all but the last 4 characters of a secret for
// display in `config show`. Values of 4 characters or fewer are masked
// entirely; an empty value is shown as "(not set)".
func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// printJSON formats the given value as indented JSON and prints it to
// stdout. Used when the --output json flag is specified.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
