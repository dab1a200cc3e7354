// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"io"
)

// limitErrorReader is a reader that returns err once more than L bytes are
// available from the underlying reader. If the limit is -1, all data from the
// underlying reader is read.
type limitErrorReader struct {
	R   io.Reader // underlying reader
	L   int64     // limit
	N   int64     // number of bytes read
	Err error     // returned when the limit is exceeded
}

// Read reads from the underlying reader and fills up p. Reaching exactly the limit is
// fine; Err is returned only when the underlying reader has more data after that.
func (l *limitErrorReader) Read(p []byte) (int, error) {
	if l.L == -1 {
		n, err := l.R.Read(p)
		l.N += int64(n)
		return n, err
	}

	// read one extra byte to detect data beyond the limit
	m := l.L - l.N + 1
	if m > int64(len(p)) {
		m = int64(len(p))
	}
	n, err := l.R.Read(p[:m])
	l.N += int64(n)
	if l.N > l.L {
		over := int(l.N - l.L)
		l.N = l.L
		return n - over, l.Err
	}
	return n, err
}

// ReadBytes returns how many bytes have been read from the underlying reader
func (l *limitErrorReader) ReadBytes() int64 {
	return l.N
}

// newLimitErrorReader returns a new limitErrorReader that reads from r and fails
// with err beyond limit bytes.
func newLimitErrorReader(r io.Reader, limit int64, err error) *limitErrorReader {
	return &limitErrorReader{R: r, L: limit, Err: err}
}
