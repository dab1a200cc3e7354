// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode"
	"github.com/spf13/afero"
)

// rarStream is the sequential header stream of a rar archive. Next advances to the
// following header, skipping whatever was not read of the current payload; Read
// reads the payload of the current header.
type rarStream interface {
	Next() (*rardecode.FileHeader, error)
	io.Reader
}

// rarOpener opens the staged archive f as a header stream. The returned closer is
// closed before the staging file is removed.
type rarOpener func(ts *TempSpace, f afero.File) (rarStream, io.Closer, error)

// openRar instantiates the rar decoder from the staged file. On the OS filesystem the
// decoder opens the file by name, otherwise it reads through the afero handle.
func openRar(ts *TempSpace, f afero.File) (rarStream, io.Closer, error) {
	if ts.onDisk() {
		rc, err := rardecode.OpenReader(f.Name(), "")
		if err != nil {
			return nil, nil, err
		}
		return &rc.Reader, rc, nil
	}
	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, nil, err
	}
	return r, io.NopCloser(f), nil
}

// rarDriver extracts rar archives. The decoder only works on a sequential cursor over
// a staged file, so the input is written to a staging file first and every matched
// payload goes through a spill file before it is read into memory.
type rarDriver struct {
	open rarOpener
}

// Format returns [FormatRar].
func (d *rarDriver) Format() Format {
	return FormatRar
}

func (d *rarDriver) listAndExtract(ctx context.Context, data []byte, keep Predicate, s *session) (files map[string][]byte, err error) {
	s.cfg.Logger().Info("extracting rar")
	ts := s.cfg.TempSpace()

	staged, err := ts.stage(data)
	if err != nil {
		return nil, s.fail(ErrIO, phaseStage, "", err)
	}
	s.td.StagedFiles++
	s.cfg.Logger().Debug("staged archive", "path", staged.Name())
	defer func() {
		if cerr := ts.release(staged); cerr != nil && err == nil {
			files, err = nil, s.fail(ErrIO, phaseCleanup, "", cerr)
		}
	}()

	stream, closer, err := d.open(ts, staged)
	if err != nil {
		return nil, s.fail(ErrMalformedContainer, phaseOpen, "", err)
	}
	defer closer.Close()

	cur := rarCursor{stream: stream}
	for {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(err, phaseNext, "", nil)
		}

		var ok bool
		cur, ok, err = cur.readHeader()
		if err != nil {
			return nil, s.fail(ErrMalformedContainer, phaseNext, "", err)
		}
		if !ok {
			return s.files, nil
		}

		h := cur.header
		if h.IsDir || !keep(h.Name) {
			s.skip(h.Name, h.IsDir)
			cur = cur.skip()
			continue
		}

		if cur, err = d.spill(ts, cur, s); err != nil {
			return nil, err
		}
	}
}

// spill extracts the payload of the current header into a temp file, reads it back
// into the session and removes the temp file again.
func (d *rarDriver) spill(ts *TempSpace, cur rarCursor, s *session) (next rarCursor, err error) {
	name := cur.header.Name
	if !cur.header.UnKnownSize {
		if err := s.checkSize(name, cur.header.UnPackedSize); err != nil {
			return cur, err
		}
	}

	out, err := ts.create()
	if err != nil {
		return cur, s.fail(ErrIO, phaseSpill, name, err)
	}
	s.td.StagedFiles++
	defer func() {
		if cerr := ts.release(out); cerr != nil && err == nil {
			err = s.fail(ErrIO, phaseCleanup, name, cerr)
		}
	}()

	next, n, err := cur.extractTo(out, s.cfg.MaxEntrySize())
	var rerr *rarReadError
	switch {
	case errors.Is(err, ErrMaxEntrySizeExceeded):
		return next, s.fail(ErrMaxEntrySizeExceeded, phaseSpill, name, nil)
	case errors.As(err, &rerr):
		return next, s.fail(ErrDecode, phaseRead, name, rerr.err)
	case err != nil:
		return next, s.fail(ErrIO, phaseSpill, name, err)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return next, s.fail(ErrIO, phaseSpill, name, err)
	}
	if err := s.read(name, n, out); err != nil {
		return next, err
	}
	return next, nil
}

// rarCursor threads the position in the header stream through the extraction loop.
// Every operation consumes the cursor and returns the advanced one.
type rarCursor struct {
	stream rarStream
	header *rardecode.FileHeader
}

// readHeader advances to the next header. ok is false after the last header.
func (c rarCursor) readHeader() (next rarCursor, ok bool, err error) {
	h, err := c.stream.Next()
	if err == io.EOF {
		return rarCursor{stream: c.stream}, false, nil
	}
	if err != nil {
		return c, false, err
	}
	return rarCursor{stream: c.stream, header: h}, true, nil
}

// extractTo copies the payload of the current header to w, failing with
// [ErrMaxEntrySizeExceeded] after maxSize bytes. Errors of the decoder are returned as
// *rarReadError.
func (c rarCursor) extractTo(w io.Writer, maxSize int64) (rarCursor, int64, error) {
	src := &rarPayload{r: c.stream}
	n, err := io.Copy(limitWriter(w, maxSize, ErrMaxEntrySizeExceeded), src)
	if src.err != nil {
		return rarCursor{stream: c.stream}, n, &rarReadError{src.err}
	}
	return rarCursor{stream: c.stream}, n, err
}

// skip leaves the payload of the current header unread. The decoder discards it on
// the next readHeader.
func (c rarCursor) skip() rarCursor {
	return rarCursor{stream: c.stream}
}

// rarPayload remembers the first decoder error, so it can be told apart from write
// errors of the spill file.
type rarPayload struct {
	r   io.Reader
	err error
}

func (p *rarPayload) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err != nil && err != io.EOF && p.err == nil {
		p.err = err
	}
	return n, err
}

// rarReadError wraps a decoder error raised while reading a payload.
type rarReadError struct {
	err error
}

func (e *rarReadError) Error() string {
	return fmt.Sprintf("cannot read rar payload: %v", e.err)
}

func (e *rarReadError) Unwrap() error {
	return e.err
}
