// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"context"
	"io"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the configuration.
//
// The default configuration bounds the input, every matched entry and the sum of all
// matched entries to 1 GiB, stages temporary files in the OS temp directory and
// discards log output.
type Config struct {
	// logger stream for extraction
	logger logger

	// maxEntrySize is the maximum size of a single matched entry after decompression.
	// Set value to -1 to disable the check.
	maxEntrySize int64

	// maxExtractionSize is the maximum size of all matched entries after decompression.
	// Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxInputSize is the maximum size of the input
	// Set value to -1 to disable the check.
	maxInputSize int64

	// telemetryHook is a function to consume telemetry data after finished extraction
	telemetryHook TelemetryHook

	// tempSpace is where staging and spill files are created
	tempSpace *TempSpace
}

// CheckEntrySize checks if size exceeds the configured maximum for a single entry.
// If the maximum is exceeded, [ErrMaxEntrySizeExceeded] is returned.
func (c *Config) CheckEntrySize(size int64) error {
	if c.maxEntrySize == -1 {
		return nil
	}
	if size > c.maxEntrySize {
		return ErrMaxEntrySizeExceeded
	}
	return nil
}

// CheckExtractionSize checks if size exceeds the configured maximum over all matched
// entries. If the maximum is exceeded, [ErrMaxExtractionSizeExceeded] is returned.
func (c *Config) CheckExtractionSize(size int64) error {
	if c.maxExtractionSize == -1 {
		return nil
	}
	if size > c.maxExtractionSize {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// CheckInputSize checks if size exceeds the configured maximum input size.
// If the maximum is exceeded, [ErrMaxInputSizeExceeded] is returned.
func (c *Config) CheckInputSize(size int64) error {
	if c.maxInputSize == -1 {
		return nil
	}
	if size > c.maxInputSize {
		return ErrMaxInputSizeExceeded
	}
	return nil
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxEntrySize returns the maximum size of a single matched entry.
func (c *Config) MaxEntrySize() int64 {
	return c.maxEntrySize
}

// MaxExtractionSize returns the maximum size over all matched entries.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return defaultTelemetryHook
	}
	return c.telemetryHook
}

// TempSpace returns the [TempSpace] used for staging and spill files.
func (c *Config) TempSpace() *TempSpace {
	if c.tempSpace == nil {
		return DefaultTempSpace()
	}
	return c.tempSpace
}

const (
	defaultMaxEntrySize      = 1 << (10 * 3) // 1 Gb
	defaultMaxExtractionSize = 1 << (10 * 3) // 1 Gb
	defaultMaxInputSize      = 1 << (10 * 3) // 1 Gb
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {
	config := &Config{
		logger:            defaultLogger,
		maxEntrySize:      defaultMaxEntrySize,
		maxExtractionSize: defaultMaxExtractionSize,
		maxInputSize:      defaultMaxInputSize,
		telemetryHook:     defaultTelemetryHook,
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxEntrySize options pattern function to set the maximum decompressed size of a
// single matched entry. (-1 to disable check)
func WithMaxEntrySize(maxEntrySize int64) ConfigOption {
	return func(c *Config) {
		c.maxEntrySize = maxEntrySize
	}
}

// WithMaxExtractionSize options pattern function to set the maximum size over all
// matched entries. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxInputSize options pattern function to set the maximum size of the archive
// bytes. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which is called
// after every extraction.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithTempSpace options pattern function to set the [TempSpace] in which staging and
// spill files are created.
func WithTempSpace(ts *TempSpace) ConfigOption {
	return func(c *Config) {
		c.tempSpace = ts
	}
}
