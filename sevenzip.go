// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"bytes"
	"context"
	"io"

	"github.com/bodgit/sevenzip"
)

// sevenZipDriver reads 7-zip archives from the in-memory buffer in a single decode
// pass over all entries. The pass cannot be resumed, so any error ends it.
type sevenZipDriver struct{}

// Format returns [FormatSevenZip].
func (d *sevenZipDriver) Format() Format {
	return FormatSevenZip
}

func (d *sevenZipDriver) listAndExtract(ctx context.Context, data []byte, keep Predicate, s *session) (map[string][]byte, error) {
	s.cfg.Logger().Info("extracting 7zip")

	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, s.fail(ErrMalformedContainer, phaseOpen, "", err)
	}

	err = forEachSevenZipEntry(r, func(ae archiveEntry) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, s.fail(err, phaseNext, "", nil)
		}

		if ae.IsDir() || !keep(ae.Name()) {
			s.skip(ae.Name(), ae.IsDir())
			return true, nil
		}

		size, err := ae.Size()
		if err != nil {
			return false, s.fail(ErrMalformedContainer, phaseNext, ae.Name(), err)
		}
		rc, err := ae.Open()
		if err != nil {
			return false, s.fail(ErrDecode, phaseOpen, ae.Name(), err)
		}
		defer rc.Close()

		// never read past the declared size into the following entry
		if err := s.read(ae.Name(), size, io.LimitReader(rc, size)); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return s.files, nil
}

// sevenZipVisitor is called once per entry during the decode pass. Returning false or
// an error ends the pass.
type sevenZipVisitor func(ae archiveEntry) (bool, error)

// forEachSevenZipEntry visits every entry of r in archive order.
func forEachSevenZipEntry(r *sevenzip.Reader, visit sevenZipVisitor) error {
	for _, f := range r.File {
		cont, err := visit(&sevenZipEntry{f})
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// sevenZipEntry is an entry in a 7zip file
type sevenZipEntry struct {
	f *sevenzip.File
}

// Name returns the name of the 7zip entry
func (z *sevenZipEntry) Name() string {
	return z.f.Name
}

// Size returns the size of the 7zip entry
func (z *sevenZipEntry) Size() (int64, error) {
	return declaredSize(z.f.UncompressedSize)
}

// IsDir returns true if the 7zip entry is a directory
func (z *sevenZipEntry) IsDir() bool {
	return z.f.FileInfo().IsDir()
}

// Open returns a reader for the 7zip entry
func (z *sevenZipEntry) Open() (io.ReadCloser, error) {
	return z.f.Open()
}
