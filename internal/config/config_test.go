//
// Date: 2026-02-15
// Copyright (c) 2026. All rights reserved.
//

package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestDir creates a temp directory and sets the config override
// so tests don't touch the real config. Returns the directory; the override
// is reset through t.Cleanup.
func setupTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	SetConfigDir(dir)
	t.Cleanup(func() { SetConfigDir("") })
	return dir
}

// TestDefaultConfig verifies that DefaultConfig returns the expected
// default origin and empty credentials.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Origin != "https://prodata.tradingview.com" {
		t.Errorf("expected default origin https://prodata.tradingview.com, got %s", cfg.Origin)
	}

	if cfg.SessionID != "" || cfg.AuthToken != "" {
		t.Errorf("expected empty credentials, got session=%s token=%s", cfg.SessionID, cfg.AuthToken)
	}
}

// TestLoadNoConfigFile verifies that Load returns a default config
// when no config file exists on disk.
func TestLoadNoConfigFile(t *testing.T) {
	setupTestDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Origin != "https://prodata.tradingview.com" {
		t.Errorf("expected default origin, got %s", cfg.Origin)
	}

	if cfg.SessionID != "" {
		t.Errorf("expected empty session id, got %s", cfg.SessionID)
	}
}

// TestSaveAndLoad verifies that saving a config and loading it back
// produces identical values.
func TestSaveAndLoad(t *testing.T) {
	setupTestDir(t)

	original := &Config{
		SessionID: "abc123session",
		AuthToken: "tok-xyz",
		Origin:    "https://prodata.tradingview.com",
	}

	if err := Save(original); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.SessionID != original.SessionID {
		t.Errorf("expected session id %s, got %s", original.SessionID, loaded.SessionID)
	}

	if loaded.AuthToken != original.AuthToken {
		t.Errorf("expected auth token %s, got %s", original.AuthToken, loaded.AuthToken)
	}
}

// TestSaveCreatesDirectory verifies that Save creates the config
// directory if it does not already exist.
func TestSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	nestedDir := filepath.Join(dir, "nested", "config")
	SetConfigDir(nestedDir)
	t.Cleanup(func() { SetConfigDir("") })

	cfg := &Config{SessionID: "test-session"}

	if err := Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	if _, err := os.Stat(filepath.Join(nestedDir, configFile)); os.IsNotExist(err) {
		t.Error("expected config file to be created")
	}
}

// TestSaveFilePermissions verifies that the config file is written
// with 0600 permissions to protect the session credentials.
func TestSaveFilePermissions(t *testing.T) {
	setupTestDir(t)

	cfg := &Config{SessionID: "secret-session"}

	if err := Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	dir, _ := configDirPath()
	info, err := os.Stat(filepath.Join(dir, configFile))
	if err != nil {
		t.Fatalf("failed to stat config file: %v", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("expected file permissions 0600, got %04o", perm)
	}
}

// TestLoadInvalidJSON verifies that Load returns an error when the
// config file contains invalid JSON.
func TestLoadInvalidJSON(t *testing.T) {
	dir := setupTestDir(t)

	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("not json"), 0600); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

// TestCredentialsFromEnv verifies that Credentials returns the values from
// TV_SESSIONID / TV_AUTH_TOKEN when set.
func TestCredentialsFromEnv(t *testing.T) {
	setupTestDir(t)

	t.Setenv("TV_SESSIONID", "env-session")
	t.Setenv("TV_AUTH_TOKEN", "env-token")

	sessionID, authToken, err := Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sessionID != "env-session" || authToken != "env-token" {
		t.Errorf("expected env credentials, got session=%s token=%s", sessionID, authToken)
	}
}

// TestCredentialsFromConfig verifies that Credentials falls back to the
// config file when the environment variables are not set.
func TestCredentialsFromConfig(t *testing.T) {
	setupTestDir(t)

	t.Setenv("TV_SESSIONID", "")
	t.Setenv("TV_AUTH_TOKEN", "")

	cfg := &Config{SessionID: "config-session", AuthToken: "config-token"}
	if err := Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	sessionID, authToken, err := Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sessionID != "config-session" || authToken != "config-token" {
		t.Errorf("expected config credentials, got session=%s token=%s", sessionID, authToken)
	}
}

// TestCredentialsEnvTakesPrecedence verifies that environment variables take
// priority over a config file's stored credentials.
func TestCredentialsEnvTakesPrecedence(t *testing.T) {
	setupTestDir(t)

	cfg := &Config{SessionID: "config-session", AuthToken: "config-token"}
	if err := Save(cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	t.Setenv("TV_SESSIONID", "env-session")

	sessionID, _, err := Credentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sessionID != "env-session" {
		t.Errorf("expected env-session, got %s", sessionID)
	}
}

// TestSaveOverwritesExisting verifies that saving a config overwrites
// any previously saved configuration.
func TestSaveOverwritesExisting(t *testing.T) {
	setupTestDir(t)

	first := &Config{SessionID: "first-session"}
	if err := Save(first); err != nil {
		t.Fatalf("failed to save first config: %v", err)
	}

	second := &Config{SessionID: "second-session", Origin: "https://custom.example.com"}
	if err := Save(second); err != nil {
		t.Fatalf("failed to save second config: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if loaded.SessionID != "second-session" {
		t.Errorf("expected second-session, got %s", loaded.SessionID)
	}

	if loaded.Origin != "https://custom.example.com" {
		t.Errorf("expected custom origin, got %s", loaded.Origin)
	}
}
