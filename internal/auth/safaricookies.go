//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package auth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// macEpochOffset is the number of seconds between the Unix epoch and the
// Mac absolute-time epoch (2001-01-01T00:00:00Z) that Safari's cookie jar
// stores expiration/creation timestamps relative to.
const macEpochOffset = 978307200

var binaryCookiesMagic = []byte("cook")

type safariCookie struct {
	domain string
	name   string
	value  string
	expiry time.Time
	hasExp bool
}

// parseBinaryCookies decodes Safari/WebKit's Cookies.binarycookies format:
// a "cook" magic, a big-endian page count and page sizes, followed by the
// page payloads themselves (little-endian within each page). No library in
// the dependency surface speaks this format, so it is hand-rolled here.
func parseBinaryCookies(data []byte) ([]safariCookie, error) {
	if len(data) < 8 || !bytes.Equal(data[:4], binaryCookiesMagic) {
		return nil, fmt.Errorf("not a binarycookies file")
	}

	pageCount := binary.BigEndian.Uint32(data[4:8])
	offset := 8

	pageSizes := make([]uint32, pageCount)
	for i := range pageSizes {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("truncated page size table")
		}
		pageSizes[i] = binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4
	}

	var cookies []safariCookie
	for _, size := range pageSizes {
		if offset+int(size) > len(data) {
			return nil, fmt.Errorf("truncated page data")
		}
		page := data[offset : offset+int(size)]
		offset += int(size)

		pageCookies, err := parsePage(page)
		if err != nil {
			continue // a single malformed page should not void the rest
		}
		cookies = append(cookies, pageCookies...)
	}

	return cookies, nil
}

func parsePage(page []byte) ([]safariCookie, error) {
	if len(page) < 8 {
		return nil, fmt.Errorf("page too small")
	}
	numCookies := binary.LittleEndian.Uint32(page[4:8])

	offsetsStart := 8
	offsetsEnd := offsetsStart + int(numCookies)*4
	if offsetsEnd > len(page) {
		return nil, fmt.Errorf("truncated cookie offset table")
	}

	var cookies []safariCookie
	for i := 0; i < int(numCookies); i++ {
		o := offsetsStart + i*4
		cookieOffset := binary.LittleEndian.Uint32(page[o : o+4])
		if int(cookieOffset) >= len(page) {
			continue
		}
		c, err := parseCookie(page[cookieOffset:])
		if err != nil {
			continue
		}
		cookies = append(cookies, c)
	}
	return cookies, nil
}

func parseCookie(buf []byte) (safariCookie, error) {
	if len(buf) < 56 {
		return safariCookie{}, fmt.Errorf("cookie record too small")
	}

	domainOffset := binary.LittleEndian.Uint32(buf[16:20])
	nameOffset := binary.LittleEndian.Uint32(buf[20:24])
	pathOffset := binary.LittleEndian.Uint32(buf[24:28])
	valueOffset := binary.LittleEndian.Uint32(buf[28:32])
	expiryBits := binary.LittleEndian.Uint64(buf[32:40])

	domain, err := readCString(buf, domainOffset)
	if err != nil {
		return safariCookie{}, err
	}
	name, err := readCString(buf, nameOffset)
	if err != nil {
		return safariCookie{}, err
	}
	value, err := readCString(buf, valueOffset)
	if err != nil {
		return safariCookie{}, err
	}
	_ = pathOffset

	c := safariCookie{domain: domain, name: name, value: value}
	if expirySeconds := math.Float64frombits(expiryBits); expirySeconds > 0 {
		c.expiry = time.Unix(int64(expirySeconds)+macEpochOffset, 0).UTC()
		c.hasExp = true
	}
	return c, nil
}

func readCString(buf []byte, offset uint32) (string, error) {
	if int(offset) >= len(buf) {
		return "", fmt.Errorf("string offset out of range")
	}
	end := bytes.IndexByte(buf[offset:], 0)
	if end == -1 {
		return "", fmt.Errorf("unterminated string")
	}
	return string(buf[offset : int(offset)+end]), nil
}
