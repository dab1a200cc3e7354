// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package install_test

import (
	"path/filepath"
	"testing"

	"github.com/skindl/skindl/install"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall(t *testing.T) {
	files := map[string][]byte{
		"skins/red.cbb":   []byte("red"),
		"skins/red.json":  []byte(`{"CharacterToReplace":"Red"}`),
		"blue.cbb":        []byte("blue"),
		"readme.json":     []byte("{}"),
		"deep/dir/x.json": []byte("{}"),
	}

	cases := []struct {
		name   string
		opts   []install.Option
		expect map[string]string
	}{
		{
			name: "bundles only",
			expect: map[string]string{
				"/game/blue.cbb": "blue",
				"/game/red.cbb":  "red",
			},
		},
		{
			name: "with overrides",
			opts: []install.Option{install.WithOverrides(true)},
			expect: map[string]string{
				"/game/blue.cbb":  "blue",
				"/game/blue.json": `{"CharacterToReplace":"None"}`,
				"/game/red.cbb":   "red",
				"/game/red.json":  `{"CharacterToReplace":"Red"}`,
			},
		},
		{
			name: "no cypher",
			opts: []install.Option{install.WithNoCypher(true)},
			expect: map[string]string{
				"/game/no_cypher/blue.cbb": "blue",
				"/game/no_cypher/red.cbb":  "red",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			written, err := install.Install("/game", files, append(tc.opts, install.WithFs(fs))...)
			require.NoError(t, err)
			assert.Len(t, written, len(tc.expect))

			for p, want := range tc.expect {
				got, err := afero.ReadFile(fs, filepath.FromSlash(p))
				require.NoError(t, err, p)
				assert.Equal(t, want, string(got), p)
			}

			for _, p := range written {
				_, ok := tc.expect[filepath.ToSlash(p)]
				assert.True(t, ok, "unexpected file %s", p)
			}
		})
	}
}

func TestInstallNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	written, err := install.Install("/game", map[string][]byte{"a.json": []byte("{}")}, install.WithFs(fs))
	require.NoError(t, err)
	assert.Empty(t, written)

	ok, err := afero.DirExists(fs, "/game")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstallRejectsUnsafeNames(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := install.Install("/game", map[string][]byte{"..": nil, "a.cbb": []byte("a")}, install.WithFs(fs))
	require.NoError(t, err, "names without bundle suffix are ignored")

	written, err := install.Install("/game", map[string][]byte{`..\..\evil.cbb`: []byte("x")}, install.WithFs(fs))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/game", "evil.cbb")}, written)
}

func TestSafeBase(t *testing.T) {
	cases := map[string]string{
		"a.cbb":          "a.cbb",
		"skins/a.cbb":    "a.cbb",
		`skins\a.cbb`:    "a.cbb",
		"../../a.cbb":    "a.cbb",
		"/abs/path/.cbb": ".cbb",
	}
	for in, want := range cases {
		got, err := install.SafeBase(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", ".", "..", "/", "dir/.."} {
		_, err := install.SafeBase(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestOverrideName(t *testing.T) {
	assert.Equal(t, "skins/red.json", install.OverrideName("skins/red.cbb"))
	assert.Equal(t, "a.cbb.json", install.OverrideName("a.cbb.cbb"))
}

func TestRawFile(t *testing.T) {
	files, err := install.RawFile("hero.cbb", []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"hero.cbb": []byte("raw")}, files)

	_, err = install.RawFile("hero.zip", nil)
	assert.Error(t, err)
}
