//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package historic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudmanic/tvstream/internal/protocol"
	"github.com/cloudmanic/tvstream/internal/transport"
)

func completedEnvelope(seriesID string, opens ...int64) []string {
	var envelopes []string
	for _, open := range opens {
		payload := fmt.Sprintf(
			`{"m":"du","p":["cs",{"%s":{"s":[{"i":0,"v":[%d,1,2,0.5,1.5,10]}]}}]}`,
			seriesID, open,
		)
		envelopes = append(envelopes, protocol.Encode(payload))
	}
	envelopes = append(envelopes, protocol.Encode(`{"m":"series_completed","p":["cs","s1"]}`))
	return envelopes
}

// extractCreateSeriesIDFromFrame recovers the seriesId a create_series
// frame registered, so a test's scripted "du" response can target it
// without hard-coding a random id.
func extractCreateSeriesIDFromFrame(frame string) (string, bool) {
	bodies, _ := protocol.Split(frame)
	for _, b := range bodies {
		var msg struct {
			M string        `json:"m"`
			P []interface{} `json:"p"`
		}
		if err := json.Unmarshal([]byte(b), &msg); err != nil {
			continue
		}
		if msg.M == "create_series" && len(msg.P) >= 2 {
			if id, ok := msg.P[1].(string); ok {
				return id, true
			}
		}
	}
	return "", false
}

func TestFetcherCacheHitAvoidsSecondDial(t *testing.T) {
	dialer := &fakeDialer{next: func(call int) (transport.Transport, error) {
		tr := newFakeTransport()
		go func() {
			var id string
			for i := 0; i < 4; i++ {
				frame := <-tr.sent
				if got, ok := extractCreateSeriesIDFromFrame(frame); ok {
					id = got
				}
			}
			for _, env := range completedEnvelope(id, 1700000000, 1700000060) {
				tr.recv <- env
			}
		}()
		return tr, nil
	}}

	f := NewFetcher(dialer, "", "", "", nil)

	// n is clamped to the server's 300-bar minimum, so with only 2 bars
	// scripted the session never reaches the count+completed condition and
	// falls back to the deadline, returning the partial set.
	got, err := f.Get(context.Background(), "NASDAQ:AAPL", "1", 2, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if dialer.callCount() != 1 {
		t.Fatalf("expected 1 dial, got %d", dialer.callCount())
	}

	// Second call with the same (symbol, interval, n) must hit the cache.
	got2, err := f.Get(context.Background(), "nasdaq:aapl", "1", 2, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error on cached fetch: %v", err)
	}
	if len(got2) != len(got) {
		t.Fatalf("cached result length mismatch")
	}
	if dialer.callCount() != 1 {
		t.Fatalf("expected cache hit to avoid a second dial, got %d dials", dialer.callCount())
	}
}

func TestFetcherConcurrencyCap(t *testing.T) {
	blockingDialer := &fakeDialer{next: func(call int) (transport.Transport, error) {
		return newFakeTransport(), nil // recv never yields; caller blocks until ctx is done
	}}

	f := NewFetcher(blockingDialer, "", "", "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Get(ctx, fmt.Sprintf("SYM%d", i), "1", 300, time.Hour)
			results <- err
		}()
	}

	// Give the 3 goroutines a moment to acquire the semaphore.
	time.Sleep(50 * time.Millisecond)

	_, err := f.Get(context.Background(), "OVERFLOW", "1", 300, time.Second)
	if err == nil || !errors.Is(err, protocol.ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}

	cancel()
	wg.Wait()
	for i := 0; i < 3; i++ {
		<-results
	}
}

func TestFetcherInvalidIntervalRejectedBeforeDial(t *testing.T) {
	dialer := &fakeDialer{next: func(call int) (transport.Transport, error) {
		t.Fatal("should not dial for an invalid interval")
		return nil, nil
	}}

	f := NewFetcher(dialer, "", "", "", nil)
	_, err := f.Get(context.Background(), "NASDAQ:AAPL", "1d", 300, time.Second)
	if err == nil {
		t.Fatal("expected an error for an invalid interval")
	}
}

func TestFetcherDeadlineReturnsPartialResult(t *testing.T) {
	dialer := &fakeDialer{next: func(call int) (transport.Transport, error) {
		tr := newFakeTransport()
		go func() {
			var id string
			for i := 0; i < 4; i++ {
				frame := <-tr.sent
				if got, ok := extractCreateSeriesIDFromFrame(frame); ok {
					id = got
				}
			}
			// Only one candle, no series_completed: the deadline must
			// still return the partial result rather than blocking
			// forever.
			payload := fmt.Sprintf(`{"m":"du","p":["cs",{"%s":{"s":[{"i":0,"v":[1700000000,1,2,0.5,1.5,10]}]}}]}`, id)
			tr.recv <- protocol.Encode(payload)
		}()
		return tr, nil
	}}

	f := NewFetcher(dialer, "", "", "", nil)
	got, err := f.Get(context.Background(), "NASDAQ:MSFT", "1", 300, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected partial result of 1 candle, got %d", len(got))
	}
}
