// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import "io"

// limitErrorWriter is a wrapper around an io.Writer that returns Err
// when the limit is reached.
type limitErrorWriter struct {
	W   io.Writer // underlying writer
	L   int64     // limit
	N   int64     // number of bytes written
	Err error     // returned when the limit is reached
}

// Write writes up to len(p) bytes from p to the underlying data stream. It returns
// the number of bytes written from p (0 <= n <= len(p)) and any error encountered
// that caused the write to stop early. The limit is enforced by returning Err once
// more than L bytes would be written.
func (l *limitErrorWriter) Write(p []byte) (n int, err error) {
	if l.N >= l.L && len(p) > 0 {
		return 0, l.Err
	}

	// write until we reach the limit
	if int64(len(p)) > l.L-l.N {
		p = p[0 : l.L-l.N]
		n, err = l.W.Write(p)
		if err == nil {
			err = l.Err
		}
		l.N += int64(n)
		return n, err
	}

	n, err = l.W.Write(p)
	l.N += int64(n)
	return n, err
}

// limitWriter returns a writer that wraps w and fails with err after maxSize bytes.
// If maxSize < 0, w is returned unchanged.
func limitWriter(w io.Writer, maxSize int64, err error) io.Writer {
	if maxSize < 0 {
		return w
	}
	return &limitErrorWriter{W: w, L: maxSize, Err: err}
}
