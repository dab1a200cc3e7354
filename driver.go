// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// driver translates the native access pattern of one container format into the
// shared list-and-filter contract. Only entries accepted by keep are read; the
// returned map is keyed by the verbatim in-archive entry name.
type driver interface {
	Format() Format
	listAndExtract(ctx context.Context, data []byte, keep Predicate, s *session) (map[string][]byte, error)
}

// availableDrivers maps every supported format to its driver.
var availableDrivers = map[Format]driver{
	FormatZip:      &zipDriver{},
	FormatRar:      &rarDriver{open: openRar},
	FormatSevenZip: &sevenZipDriver{},
}

// archiveEntry is an interface that represents an entry in an archive. Open is lazy
// and must only be called for entries accepted by the filter.
type archiveEntry interface {
	Name() string
	Size() (int64, error)
	IsDir() bool
	Open() (io.ReadCloser, error)
}

// session is the state of one extraction call. It collects the matched entries,
// enforces the size limits and records telemetry.
type session struct {
	cfg       *Config
	format    Format
	td        *TelemetryData
	files     map[string][]byte
	extracted int64
}

func newSession(cfg *Config, format Format, td *TelemetryData) *session {
	return &session{
		cfg:    cfg,
		format: format,
		td:     td,
		files:  make(map[string][]byte),
	}
}

// fail increases the error counter, sets the latest error and returns it.
func (s *session) fail(kind error, phase string, entry string, err error) error {
	e := &ExtractError{Kind: kind, Format: s.format, Phase: phase, Entry: entry, Err: err}
	s.td.ExtractionErrors++
	s.td.LastExtractionError = e
	return e
}

// skip records an entry that is not extracted.
func (s *session) skip(name string, dir bool) {
	if dir {
		s.td.SkippedDirs++
		return
	}
	s.cfg.Logger().Debug("skipping entry (suffix mismatch)", "name", name)
	s.td.SkippedEntries++
}

// read consumes src, which holds the payload of the matched entry name. size is the
// declared size of the entry or -1 if unknown. A payload shorter than the declared size
// is a decode failure.
func (s *session) read(name string, size int64, src io.Reader) error {
	if size >= 0 {
		if err := s.checkSize(name, size); err != nil {
			return err
		}
	}

	capHint := size
	if capHint < 0 || capHint > bytes.MinRead*64 {
		capHint = bytes.MinRead
	}
	buf := bytes.NewBuffer(make([]byte, 0, capHint))

	limit, bySize := s.cfg.MaxEntrySize(), false
	if size >= 0 && (limit < 0 || size <= limit) {
		limit, bySize = size, true
	}
	lr := newLimitErrorReader(src, limit, errBeyondLimit)
	_, err := buf.ReadFrom(lr)
	n := lr.ReadBytes()
	switch {
	case errors.Is(err, errBeyondLimit) && bySize:
		return s.fail(ErrDecode, phaseRead, name, fmt.Errorf("entry holds more than the declared %d bytes", size))
	case errors.Is(err, errBeyondLimit):
		return s.fail(ErrMaxEntrySizeExceeded, phaseRead, name, nil)
	case err != nil:
		return s.fail(ErrDecode, phaseRead, name, err)
	case size >= 0 && n != size:
		return s.fail(ErrDecode, phaseRead, name, fmt.Errorf("read %d of %d bytes: %w", n, size, io.ErrUnexpectedEOF))
	}

	return s.record(name, buf.Bytes())
}

// checkSize checks a known entry size against the configured limits. An earlier
// entry of the same name is replaced by this one, so its size is not counted.
func (s *session) checkSize(name string, size int64) error {
	if err := s.cfg.CheckEntrySize(size); err != nil {
		return s.fail(err, phaseRead, name, nil)
	}
	if err := s.cfg.CheckExtractionSize(s.extracted - int64(len(s.files[name])) + size); err != nil {
		return s.fail(err, phaseRead, name, nil)
	}
	return nil
}

// record stores data under name. A later entry with the same name replaces an earlier
// one; iteration order decides.
func (s *session) record(name string, data []byte) error {
	if prev, ok := s.files[name]; ok {
		s.cfg.Logger().Debug("duplicate entry name, keeping the later one", "name", name)
		s.extracted -= int64(len(prev))
		s.td.ExtractedFiles--
	}
	if err := s.cfg.CheckExtractionSize(s.extracted + int64(len(data))); err != nil {
		return s.fail(err, phaseRead, name, nil)
	}
	s.files[name] = data
	s.extracted += int64(len(data))
	s.td.ExtractedFiles++
	s.td.ExtractionSize = s.extracted
	s.cfg.Logger().Debug("extract", "name", name, "size", len(data))
	return nil
}

// declaredSize converts the unsigned size of an entry header. Sizes that do not fit
// into an int64 cannot be genuine.
func declaredSize(size uint64) (int64, error) {
	if size > math.MaxInt64 {
		return 0, fmt.Errorf("declared size %d out of range", size)
	}
	return int64(size), nil
}

// errBeyondLimit marks a read past the entry limit.
var errBeyondLimit = errors.New("read beyond limit")
