// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// zipDriver reads zip archives through their central directory, directly from the
// in-memory buffer. Unmatched entries are never decompressed.
type zipDriver struct{}

// Format returns [FormatZip].
func (d *zipDriver) Format() Format {
	return FormatZip
}

func (d *zipDriver) listAndExtract(ctx context.Context, data []byte, keep Predicate, s *session) (map[string][]byte, error) {
	s.cfg.Logger().Info("extracting zip")

	// entry names are kept verbatim, so non-local names are not an error here
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, s.fail(ErrMalformedContainer, phaseOpen, "", err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	walker := &zipWalker{zr: zr}
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(err, phaseNext, "", nil)
		}

		ae, err := walker.Next()
		if err == io.EOF {
			return s.files, nil
		}

		if ae.IsDir() || !keep(ae.Name()) {
			s.skip(ae.Name(), ae.IsDir())
			continue
		}

		size, err := ae.Size()
		if err != nil {
			return nil, s.fail(ErrMalformedContainer, phaseNext, ae.Name(), err)
		}
		rc, err := ae.Open()
		if err != nil {
			return nil, s.fail(ErrDecode, phaseOpen, ae.Name(), err)
		}
		err = s.read(ae.Name(), size, rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
	}
}

// zipWalker walks the central directory of a zip archive in its own order.
type zipWalker struct {
	zr *zip.Reader
	fp int
}

// Next returns the next entry in the zip archive or io.EOF after the last one.
func (z *zipWalker) Next() (archiveEntry, error) {
	if z.fp >= len(z.zr.File) {
		return nil, io.EOF
	}
	defer func() { z.fp++ }()
	return &zipEntry{z.zr.File[z.fp]}, nil
}

// zipEntry is an entry in a zip archive
type zipEntry struct {
	zf *zip.File
}

// Name returns the name of the entry
func (z *zipEntry) Name() string {
	return z.zf.Name
}

// Size returns the uncompressed size of the entry
func (z *zipEntry) Size() (int64, error) {
	return declaredSize(z.zf.UncompressedSize64)
}

// IsDir returns true if the entry is a directory
func (z *zipEntry) IsDir() bool {
	return z.zf.Mode().IsDir()
}

// Open returns a reader for the entry
func (z *zipEntry) Open() (io.ReadCloser, error) {
	return z.zf.Open()
}
