// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"errors"
	"fmt"
)

// Error kinds returned by [Extract]. Use errors.Is in callers.
var (
	// ErrMalformedContainer means the structure of the archive could not be parsed.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrIO means staging, writing, reading or removing a temporary file failed.
	ErrIO = errors.New("io failure")

	// ErrDecode means the payload of a matched entry could not be read to completion.
	ErrDecode = errors.New("decode failure")

	// ErrUnsupportedFormat means there is no driver for the declared format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrMaxInputSizeExceeded means the input is larger than the configured maximum.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrMaxEntrySizeExceeded means a matched entry is larger than the configured maximum.
	ErrMaxEntrySizeExceeded = errors.New("maximum entry size exceeded")

	// ErrMaxExtractionSizeExceeded means the matched entries together are larger than
	// the configured maximum.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")
)

// phases of an extraction, used in [ExtractError]
const (
	phaseCleanup = "cleanup"
	phaseNext    = "next"
	phaseOpen    = "open"
	phaseRead    = "read"
	phaseSpill   = "spill"
	phaseStage   = "stage"
)

// ExtractError records the kind of a failure together with the format, the phase and,
// if known, the entry that caused it. Kind is one of the sentinels above, or the
// context error if the extraction was cancelled between two entries.
type ExtractError struct {
	Kind   error
	Format Format
	Phase  string
	Entry  string
	Err    error
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	where := fmt.Sprintf("%s %s", e.Format, e.Phase)
	if e.Entry != "" {
		where = fmt.Sprintf("%s %q", where, e.Entry)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", where, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", where, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *ExtractError) Is(target error) bool {
	return e.Kind == target
}
