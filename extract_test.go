// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package skindl_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/skindl/skindl"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// skin is the payload of a.cbb in the pair fixtures
var skin = []byte("\x00skin\xffpayload")

// createPairZip creates the zip counterpart of testdata/pair.7z.
func createPairZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range []struct{ name, data string }{
		{"a.cbb", string(skin)},
		{"b.txt", "arbitrary"},
	} {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestExtractRoundTrip(t *testing.T) {
	inputs := map[skindl.Format][]byte{
		skindl.FormatZip:      createPairZip(t),
		skindl.FormatSevenZip: readTestdata(t, "pair.7z"),
	}

	for format, data := range inputs {
		t.Run(format.String(), func(t *testing.T) {
			got, err := skindl.Extract(context.Background(), data, format)
			require.NoError(t, err)
			require.Equal(t, map[string][]byte{"a.cbb": skin}, got)

			again, err := skindl.Extract(context.Background(), data, format)
			require.NoError(t, err)
			require.Equal(t, got, again)
		})
	}
}

func TestExtractOnlyWantedNames(t *testing.T) {
	got, err := skindl.Extract(context.Background(), readTestdata(t, "skins.7z"), skindl.FormatSevenZip)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for name := range got {
		require.True(t, skindl.Wanted(name), "unexpected entry %q", name)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, format := range []skindl.Format{skindl.FormatZip, skindl.FormatRar, skindl.FormatSevenZip} {
		t.Run(format.String(), func(t *testing.T) {
			ts := skindl.NewTempSpace(afero.NewOsFs(), t.TempDir())
			got, err := skindl.Extract(context.Background(), nil, format, skindl.WithTempSpace(ts))
			require.ErrorIs(t, err, skindl.ErrMalformedContainer)
			require.Nil(t, got)

			left, err := ts.Leftovers()
			require.NoError(t, err)
			require.Empty(t, left)
		})
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	for _, format := range []skindl.Format{0, 99} {
		got, err := skindl.Extract(context.Background(), createPairZip(t), format)
		require.ErrorIs(t, err, skindl.ErrUnsupportedFormat)
		require.Nil(t, got)
	}
}

func TestExtractInputSizeLimit(t *testing.T) {
	data := createPairZip(t)

	_, err := skindl.Extract(context.Background(), data, skindl.FormatZip, skindl.WithMaxInputSize(int64(len(data)-1)))
	require.ErrorIs(t, err, skindl.ErrMaxInputSizeExceeded)

	_, err = skindl.Extract(context.Background(), data, skindl.FormatZip, skindl.WithMaxInputSize(int64(len(data))))
	require.NoError(t, err)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Skins.ZIP")
	require.NoError(t, os.WriteFile(path, createPairZip(t), 0o600))

	got, err := skindl.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"a.cbb": skin}, got)

	got, err = skindl.ExtractFile(context.Background(), filepath.Join("testdata", "duplicate.7z"))
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"x.cbb": []byte("second!")}, got)

	_, err = skindl.ExtractFile(context.Background(), filepath.Join(dir, "skins.tar"))
	require.ErrorIs(t, err, skindl.ErrUnsupportedFormat)

	_, err = skindl.ExtractFile(context.Background(), filepath.Join(dir, "missing.zip"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractConcurrentSharedTempDir(t *testing.T) {
	ts := skindl.NewTempSpace(afero.NewOsFs(), t.TempDir())
	rar := readTestdata(t, "dated.rar")
	truncated := rar[:len(rar)-1]

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		data := rar
		if i%2 == 1 {
			data = truncated
		}
		g.Go(func() error {
			_, err := skindl.Extract(ctx, data, skindl.FormatRar, skindl.WithTempSpace(ts))
			if len(data) == len(truncated) {
				if !errors.Is(err, skindl.ErrMalformedContainer) {
					return fmt.Errorf("truncated archive: %w", err)
				}
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	left, err := ts.Leftovers()
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestExtractLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := skindl.Extract(context.Background(), readTestdata(t, "skins.7z"), skindl.FormatSevenZip, skindl.WithLogger(logger))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "extracting 7zip")
	require.Contains(t, buf.String(), "skipping entry")
	require.Contains(t, buf.String(), "extraction finished")
}
