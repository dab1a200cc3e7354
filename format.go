// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"fmt"
	"path"
	"strings"
)

// Format is the declared container kind of an archive. The engine never sniffs
// content; the caller supplies the format.
type Format int

const (
	// FormatZip is a zip archive with a central directory.
	FormatZip Format = iota + 1

	// FormatRar is a rar archive (v1.5 - v5).
	FormatRar

	// FormatSevenZip is a 7-zip archive.
	FormatSevenZip
)

// file extensions of the supported formats
const (
	fileExtensionZip      = "zip"
	fileExtensionRar      = "rar"
	fileExtensionSevenZip = "7z"
)

// String returns the file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return fileExtensionZip
	case FormatRar:
		return fileExtensionRar
	case FormatSevenZip:
		return fileExtensionSevenZip
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// FormatFromName derives the format from the extension of name, e.g. the file name
// of a download. The match is case-insensitive. An [ErrUnsupportedFormat] is returned
// for unknown extensions.
func FormatFromName(name string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	switch ext {
	case fileExtensionZip:
		return FormatZip, nil
	case fileExtensionRar:
		return FormatRar, nil
	case fileExtensionSevenZip:
		return FormatSevenZip, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}
