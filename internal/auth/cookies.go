//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

// Package auth resolves TradingView session credentials: environment
// variables first, falling back to the host browser's cookie jar on
// platforms where one is known.
package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Cookies holds the resolved TradingView session identity. Expiry is the
// zero time when it could not be determined; callers should not treat a
// zero Expiry as "never expires".
type Cookies struct {
	SessionID string
	AuthToken string
	Expiry    time.Time
	HasExpiry bool
}

// IsAuthenticated reports whether both cookie values were found.
func (c Cookies) IsAuthenticated() bool {
	return c.SessionID != "" && c.AuthToken != ""
}

// Discover resolves credentials in order: TV_SESSIONID/TV_AUTH_TOKEN
// environment variables, then (on macOS) Safari's binary cookie store.
// Any failure along the way degrades silently to an unauthenticated
// result rather than propagating an error; this mirrors the protocol's
// anonymous-by-default posture.
func Discover() Cookies {
	sessionID := os.Getenv("TV_SESSIONID")
	authToken := os.Getenv("TV_AUTH_TOKEN")
	if sessionID != "" || authToken != "" {
		return Cookies{SessionID: sessionID, AuthToken: authToken}
	}

	if runtime.GOOS == "darwin" {
		if c, ok := discoverSafariCookies(); ok {
			return c
		}
	}

	return Cookies{}
}

func discoverSafariCookies() (Cookies, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Cookies{}, false
	}
	path := filepath.Join(home, "Library", "Containers", "com.apple.Safari", "Data",
		"Library", "Cookies", "Cookies.binarycookies")

	data, err := os.ReadFile(path)
	if err != nil {
		return Cookies{}, false
	}

	cookies, err := parseBinaryCookies(data)
	if err != nil {
		return Cookies{}, false
	}

	var out Cookies
	for _, c := range cookies {
		if !containsDomain(c.domain, ".tradingview.com") {
			continue
		}
		switch c.name {
		case "sessionid":
			out.SessionID = c.value
			if c.hasExp {
				out.Expiry = c.expiry
				out.HasExpiry = true
			}
		case "auth_token":
			out.AuthToken = c.value
		}
	}

	if out.SessionID == "" && out.AuthToken == "" {
		return Cookies{}, false
	}
	return out, true
}

// ParseExpiry accepts an expiry value in any of three forms the discovered
// cookie stores have been observed to use: epoch seconds, an RFC-1123 date,
// or "YYYY-MM-DD HH:MM UTC". A value that matches none of these degrades to
// (zero time, false) rather than an error.
func ParseExpiry(raw string) (time.Time, bool) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if t, err := time.Parse(time.RFC1123, raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02 15:04 UTC", raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func containsDomain(domain, suffix string) bool {
	if len(domain) < len(suffix) {
		return false
	}
	return domain[len(domain)-len(suffix):] == suffix || domain == suffix[1:]
}
