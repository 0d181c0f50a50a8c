//
// Date: 2026-02-14
// Copyright (c) 2026. All rights reserved.
//

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDir  = ".config/tvstream"
	configFile = "config.json"
)

// configDirOverride, when set via SetConfigDir, replaces the computed
// ~/.config/tvstream directory. Used by tests to avoid touching the real
// user config.
var configDirOverride string

// SetConfigDir overrides the config directory used by configPath and
// configDirPath. Passing an empty string restores the default
// ~/.config/tvstream location.
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// Config holds the application configuration including TradingView session
// credentials and the optional S3 endpoint used for archive exports.
type Config struct {
	SessionID   string `json:"session_id"`
	AuthToken   string `json:"auth_token"`
	Origin      string `json:"origin"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// DefaultConfig returns a Config with default values. The origin defaults
// to TradingView's production data endpoint.
func DefaultConfig() *Config {
	return &Config{
		Origin: "https://prodata.tradingview.com",
	}
}

// configPath returns the full filesystem path to the config file
// located at ~/.config/tvstream/config.json.
func configPath() (string, error) {
	dir, err := configDirPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// configDirPath returns the full filesystem path to the config directory
// located at ~/.config/tvstream/, or configDirOverride if SetConfigDir has
// been called.
func configDirPath() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

// Load reads the configuration from disk. If the config file does not exist,
// it returns a default configuration. Returns an error if the file exists
// but cannot be read or parsed.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk at ~/.config/tvstream/config.json.
// It creates the config directory if it does not exist. The file is written
// with 0600 permissions to protect the session credentials.
func Save(cfg *Config) error {
	dir, err := configDirPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Credentials returns the session ID and auth token to authenticate with,
// checking the TV_SESSIONID / TV_AUTH_TOKEN environment variables first and
// falling back to the config file. Either value may be empty, in which case
// callers should fall back to auth discovery (env/Safari cookies) or stream
// unauthenticated.
func Credentials() (sessionID, authToken string, err error) {
	sessionID = os.Getenv("TV_SESSIONID")
	authToken = os.Getenv("TV_AUTH_TOKEN")
	if sessionID != "" || authToken != "" {
		return sessionID, authToken, nil
	}

	cfg, err := Load()
	if err != nil {
		return "", "", err
	}

	return cfg.SessionID, cfg.AuthToken, nil
}
