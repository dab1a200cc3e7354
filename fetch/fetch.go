// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package fetch downloads archives over HTTP with progress reporting.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
)

// chunkSize is the read size between two progress reports.
const chunkSize = 32 * 1024

// ErrTooLarge is returned if a download exceeds the configured maximum size.
var ErrTooLarge = errors.New("download exceeds maximum size")

// Progress is called after every received chunk. total is -1 if the server did not
// announce the content length.
type Progress func(current, total int64)

type logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Option adjusts a download.
type Option func(*options)

type options struct {
	client   *http.Client
	logger   logger
	maxSize  int64
	progress Progress
}

// WithClient sets the HTTP client. Default is a pooled cleanhttp client.
func WithClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMaxSize limits the number of downloaded bytes. (-1 to disable check)
func WithMaxSize(maxSize int64) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}

// WithProgress sets a progress callback.
func WithProgress(p Progress) Option {
	return func(o *options) {
		o.progress = p
	}
}

var defaultClient = cleanhttp.DefaultPooledClient()

// Fetch downloads url into memory. Responses other than 2xx are errors.
func Fetch(ctx context.Context, url string, opts ...Option) ([]byte, error) {
	o := &options{
		client:   defaultClient,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxSize:  -1,
		progress: func(int64, int64) {},
	}
	for _, opt := range opts {
		opt(o)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("cannot download %s: %s", url, resp.Status)
	}

	total := resp.ContentLength
	if o.maxSize >= 0 && total > o.maxSize {
		return nil, fmt.Errorf("%w: %s announced, %s allowed", ErrTooLarge, humanize.IBytes(uint64(total)), humanize.IBytes(uint64(o.maxSize)))
	}
	o.logger.Debug("download started", "url", url, "size", sizeString(total))

	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	chunk := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if o.maxSize >= 0 && int64(buf.Len()) > o.maxSize {
				return nil, fmt.Errorf("%w: %s allowed", ErrTooLarge, humanize.IBytes(uint64(o.maxSize)))
			}
			o.progress(int64(buf.Len()), total)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read download: %w", err)
		}
	}

	o.logger.Info("download finished", "url", url, "size", humanize.IBytes(uint64(buf.Len())))
	return buf.Bytes(), nil
}

func sizeString(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(n))
}
