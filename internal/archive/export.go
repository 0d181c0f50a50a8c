//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

// Package archive implements the opt-in, one-shot export of a historic
// fetch result to an S3-compatible object store.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/cloudmanic/tvstream/internal/protocol"
)

const defaultRegion = "us-east-1"

// Client uploads a slice of candles to an S3-compatible bucket as a single
// gzip-free CSV object. It is a one-shot operation invoked at the end of a
// `candles hist --export-s3` call, never a background writer.
type Client struct {
	s3 *s3.Client
}

// NewClient configures a Client against an S3-compatible endpoint using
// static credentials and path-style addressing.
func NewClient(accessKey, secretKey, endpoint string) *Client {
	opts := s3.Options{
		Region:       defaultRegion,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &Client{s3: s3.New(opts)}
}

// ParseBucketKey splits a "bucket/key/with/slashes" target into its bucket
// and key components.
func ParseBucketKey(target string) (bucket, key string, err error) {
	idx := strings.Index(target, "/")
	if idx <= 0 || idx == len(target)-1 {
		return "", "", fmt.Errorf("invalid export target %q, expected bucket/key", target)
	}
	return target[:idx], target[idx+1:], nil
}

// Export writes candles as CSV (symbol, interval, ts_open, ts_close, open,
// high, low, close, volume, closed; timestamps in epoch seconds) to
// bucket/key.
func (c *Client) Export(ctx context.Context, bucket, key string, candles []protocol.Candle) error {
	body, err := encodeCSV(candles)
	if err != nil {
		return fmt.Errorf("encode candles: %w", err)
	}

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func encodeCSV(candles []protocol.Candle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"symbol", "interval", "ts_open", "ts_close", "open", "high", "low", "close", "volume", "closed"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, c := range candles {
		volume := ""
		if c.Volume != nil {
			volume = c.Volume.String()
		}
		row := []string{
			c.Symbol,
			c.Interval,
			strconv.FormatInt(c.TSOpen.Unix(), 10),
			strconv.FormatInt(c.TSClose.Unix(), 10),
			c.Open.String(),
			c.High.String(),
			c.Low.String(),
			c.Close.String(),
			volume,
			strconv.FormatBool(c.Closed),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
