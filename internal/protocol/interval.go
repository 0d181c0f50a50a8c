//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// allowedMinuteCodes are the resolution codes the server accepts for
// sub-daily intervals, expressed in minutes.
var allowedMinuteCodes = map[string]bool{
	"1": true, "3": true, "5": true, "15": true, "30": true,
	"60": true, "120": true, "240": true,
}

// allowedLetterCodes are the resolution codes for daily-and-above
// intervals.
var allowedLetterCodes = map[string]bool{
	"D": true, "W": true, "M": true,
}

// NormalizeInterval maps a user-supplied interval string (any case, with
// an optional m/h/d/w/mo suffix) to the protocol's resolution code. It
// returns ErrInvalidInterval for anything outside the allowed set.
//
// NormalizeInterval is idempotent: NormalizeInterval(NormalizeInterval(x))
// equals NormalizeInterval(x) for any x that already normalizes cleanly,
// since every output value is also a valid input to the algorithm.
func NormalizeInterval(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case strings.HasSuffix(s, "mo"):
		prefix := strings.TrimSuffix(s, "mo")
		if isDecimal(prefix) {
			return "M", nil
		}
	case strings.HasSuffix(s, "m") && isDecimal(strings.TrimSuffix(s, "m")):
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "h"):
		if code, ok := multiplyMinutes(s, "h", 60); ok {
			if err := validateCode(code); err != nil {
				return "", err
			}
			return code, nil
		}
	case strings.HasSuffix(s, "d"):
		if code, ok := multiplyMinutes(s, "d", 1440); ok {
			if err := validateCode(code); err != nil {
				return "", err
			}
			return code, nil
		}
	case strings.HasSuffix(s, "w"):
		if code, ok := multiplyMinutes(s, "w", 10080); ok {
			if err := validateCode(code); err != nil {
				return "", err
			}
			return code, nil
		}
	}

	if isDecimal(s) && allowedMinuteCodes[s] {
		return s, nil
	}

	upper := strings.ToUpper(s)
	if allowedLetterCodes[upper] {
		return upper, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
}

// multiplyMinutes strips the given suffix from s, checks the remaining
// prefix is decimal, and if so returns the prefix multiplied by factor as
// a decimal string.
func multiplyMinutes(s, suffix string, factor int) (string, bool) {
	prefix := strings.TrimSuffix(s, suffix)
	if !isDecimal(prefix) {
		return "", false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n * factor), true
}

// validateCode checks a minute-resolution code against the allowed set,
// returning ErrInvalidInterval if it falls outside it (e.g. "1d" expands
// to 1440 minutes, which is not itself an allowed sub-daily code).
func validateCode(code string) error {
	if allowedMinuteCodes[code] {
		return nil
	}
	return fmt.Errorf("%w: resolution %q out of range", ErrInvalidInterval, code)
}

// isDecimal reports whether s is a non-empty string of ASCII digits.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
