// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/afero"
)

// temp file naming, a random id is placed between prefix and suffix
const (
	tempFilePrefix = "skindl-"
	tempFileSuffix = ".tmp"

	// TempFilePattern matches every temporary file created by a [TempSpace].
	TempFilePattern = tempFilePrefix + "*" + tempFileSuffix
)

// TempSpace is the place where staging and spill files are created. Every file gets a
// collision-resistant random name, so concurrent extractions sharing one directory
// cannot clash.
type TempSpace struct {
	fs    afero.Fs
	dir   string
	newID func() (string, error)
}

// NewTempSpace creates a [TempSpace] in dir on the filesystem fs.
func NewTempSpace(fs afero.Fs, dir string) *TempSpace {
	return &TempSpace{
		fs:    fs,
		dir:   dir,
		newID: func() (string, error) { return gonanoid.New() },
	}
}

// DefaultTempSpace returns a [TempSpace] in the OS temp directory.
func DefaultTempSpace() *TempSpace {
	return NewTempSpace(afero.NewOsFs(), os.TempDir())
}

// Fs returns the filesystem of the temp space.
func (t *TempSpace) Fs() afero.Fs {
	return t.fs
}

// Dir returns the directory of the temp space.
func (t *TempSpace) Dir() string {
	return t.dir
}

// onDisk reports whether files of the temp space are real OS files.
func (t *TempSpace) onDisk() bool {
	_, ok := t.fs.(*afero.OsFs)
	return ok
}

// Leftovers lists all files in the temp space matching [TempFilePattern].
func (t *TempSpace) Leftovers() ([]string, error) {
	return afero.Glob(t.fs, filepath.Join(t.dir, TempFilePattern))
}

// path returns a fresh temp file path.
func (t *TempSpace) path() (string, error) {
	id, err := t.newID()
	if err != nil {
		return "", fmt.Errorf("cannot generate temp file id: %w", err)
	}
	return filepath.Join(t.dir, tempFilePrefix+id+tempFileSuffix), nil
}

// create creates a new, empty temp file. It fails if the generated name already exists.
func (t *TempSpace) create() (afero.File, error) {
	path, err := t.path()
	if err != nil {
		return nil, err
	}
	f, err := t.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cannot create temp file: %w", err)
	}
	return f, nil
}

// stage writes data into a new temp file and rewinds it. On error no file is left behind.
func (t *TempSpace) stage(data []byte) (afero.File, error) {
	f, err := t.create()
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		return nil, errors.Join(fmt.Errorf("cannot write staging file: %w", err), t.release(f))
	}
	if err := f.Sync(); err != nil {
		return nil, errors.Join(fmt.Errorf("cannot sync staging file: %w", err), t.release(f))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Join(fmt.Errorf("cannot rewind staging file: %w", err), t.release(f))
	}
	return f, nil
}

// release closes and removes f. The removal is attempted even if closing fails.
func (t *TempSpace) release(f afero.File) error {
	name := f.Name()
	closeErr := f.Close()
	if err := t.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove temp file: %w", err)
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return fmt.Errorf("cannot close temp file: %w", closeErr)
	}
	return nil
}
