// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// readFixture returns the contents of a file in testdata.
func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// zipMember describes one entry of a generated zip archive.
type zipMember struct {
	name   string
	data   []byte
	method uint16
}

// createTestZip packs members in order into a zip archive.
func createTestZip(t *testing.T, members ...zipMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, m := range members {
		method := m.method
		if method == 0 && len(m.data) > 0 {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.name, Method: method})
		require.NoError(t, err)
		_, err = w.Write(m.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// memTempSpace returns a temp space on an in-memory filesystem.
func memTempSpace(t *testing.T) *TempSpace {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/tmp", 0o755))
	return NewTempSpace(fs, "/tmp")
}

// diskTempSpace returns a temp space in an isolated directory on disk.
func diskTempSpace(t *testing.T) *TempSpace {
	t.Helper()
	return NewTempSpace(afero.NewOsFs(), t.TempDir())
}

// requireNoLeftovers fails if any temp file is left in ts.
func requireNoLeftovers(t *testing.T, ts *TempSpace) {
	t.Helper()
	left, err := ts.Leftovers()
	require.NoError(t, err)
	require.Empty(t, left, "temporary files left behind")
}

// fakeRarEntry is one header of a fakeRarStream. If err is set, reading the payload
// fails with it after the data was returned.
type fakeRarEntry struct {
	header rardecode.FileHeader
	data   []byte
	err    error
}

// fakeRarStream replays a fixed list of headers. It records which payloads were read.
type fakeRarStream struct {
	entries []fakeRarEntry
	pos     int
	cur     io.Reader
	nextErr error
	nextAt  int
	read    []string
}

func (f *fakeRarStream) Next() (*rardecode.FileHeader, error) {
	if f.nextErr != nil && f.pos == f.nextAt {
		return nil, f.nextErr
	}
	if f.pos >= len(f.entries) {
		return nil, io.EOF
	}
	e := f.entries[f.pos]
	f.pos++
	f.cur = &fakePayload{r: bytes.NewReader(e.data), err: e.err}
	h := e.header
	return &h, nil
}

func (f *fakeRarStream) Read(p []byte) (int, error) {
	if f.cur == nil {
		return 0, io.EOF
	}
	name := f.entries[f.pos-1].header.Name
	if len(f.read) == 0 || f.read[len(f.read)-1] != name {
		f.read = append(f.read, name)
	}
	return f.cur.Read(p)
}

type fakePayload struct {
	r   io.Reader
	err error
}

func (p *fakePayload) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if err == io.EOF && p.err != nil {
		return n, p.err
	}
	return n, err
}

// fakeRarOpener returns an opener serving stream, ignoring the staged file.
func fakeRarOpener(stream *fakeRarStream) rarOpener {
	return func(ts *TempSpace, f afero.File) (rarStream, io.Closer, error) {
		return stream, io.NopCloser(nil), nil
	}
}

// rarFile is a shorthand for a regular rar header.
func rarFile(name string, data []byte) fakeRarEntry {
	return fakeRarEntry{
		header: rardecode.FileHeader{Name: name, UnPackedSize: int64(len(data))},
		data:   data,
	}
}
