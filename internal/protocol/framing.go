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

const (
	frameHeaderPrefix = "~m~"
	heartbeatPrefix   = "~h~"
)

// Encode wraps payload in the TradingView envelope: "~m~<byteLength>~m~<payload>".
// The length is the UTF-8 byte length of payload, not its rune count.
func Encode(payload string) string {
	return fmt.Sprintf("%s%d%s%s", frameHeaderPrefix, len(payload), frameHeaderPrefix, payload)
}

// Split scans buffer for complete "~m~<len>~m~<payload>" envelopes, returning
// the decoded payloads in order along with any trailing partial envelope
// (remainder). Split is pure: frame boundaries never depend on how the
// caller chunked the underlying transport reads, so callers can accumulate
// remainder across calls and feed it back in with the next chunk.
func Split(buffer string) (frames []string, remainder string) {
	rest := buffer

	for {
		start := strings.Index(rest, frameHeaderPrefix)
		if start == -1 {
			remainder = rest
			return frames, remainder
		}

		// Anything before the header is not part of a well-formed
		// envelope; drop it rather than looping forever on it.
		rest = rest[start:]

		afterFirst := rest[len(frameHeaderPrefix):]
		secondIdx := strings.Index(afterFirst, frameHeaderPrefix)
		if secondIdx == -1 {
			remainder = rest
			return frames, remainder
		}

		lengthStr := afterFirst[:secondIdx]
		declaredLen, err := strconv.Atoi(lengthStr)
		if err != nil {
			// Malformed length prefix: treat as protocol error by
			// discarding the bogus header and continuing the scan so a
			// single corrupt envelope doesn't wedge the whole buffer.
			rest = afterFirst[secondIdx:]
			continue
		}

		payloadStart := len(frameHeaderPrefix) + secondIdx + len(frameHeaderPrefix)
		body := rest[payloadStart:]
		if len(body) < declaredLen {
			// Incomplete payload; wait for more data.
			remainder = rest
			return frames, remainder
		}

		frames = append(frames, body[:declaredLen])
		rest = body[declaredLen:]
	}
}

// IsHeartbeat reports whether payload is a server heartbeat of the form
// "~h~<n>", which must be echoed back verbatim before any further parsing.
func IsHeartbeat(payload string) bool {
	return strings.HasPrefix(payload, heartbeatPrefix)
}
