// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Extract returns the entries of the archive data whose names end with one of the
// wanted suffixes, keyed by their verbatim in-archive names. format is the declared
// container kind of data; no format detection is done.
//
// Extraction is all-or-nothing: on error the returned map is nil. Temporary files
// created during the call are removed before it returns. If an archive holds the same
// entry name twice, the entry seen last wins.
func Extract(ctx context.Context, data []byte, format Format, opts ...ConfigOption) (map[string][]byte, error) {
	return extract(ctx, data, format, Wanted, NewConfig(opts...))
}

// ExtractFile reads the archive at path and extracts it with the format derived from
// the file name. See [Extract].
func ExtractFile(ctx context.Context, path string, opts ...ConfigOption) (map[string][]byte, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filepath.Base(path), err)
	}
	return Extract(ctx, data, format, opts...)
}

// extract dispatches data to the driver of format and collects the entries accepted
// by keep.
func extract(ctx context.Context, data []byte, format Format, keep Predicate, cfg *Config) (map[string][]byte, error) {
	// prepare telemetry data collection and emit
	td := &TelemetryData{ExtractedType: format.String(), InputSize: int64(len(data))}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	s := newSession(cfg, format, td)

	d, ok := availableDrivers[format]
	if !ok {
		return nil, s.fail(ErrUnsupportedFormat, phaseOpen, "", nil)
	}

	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, s.fail(err, phaseOpen, "", fmt.Errorf("%d bytes", len(data)))
	}

	files, err := d.listAndExtract(ctx, data, keep, s)
	if err != nil {
		cfg.Logger().Debug("extraction failed", "type", format.String(), "error", err)
		return nil, err
	}

	cfg.Logger().Info("extraction finished", "type", format.String(), "files", len(files))
	return files, nil
}
