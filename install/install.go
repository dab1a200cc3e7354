// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package install places extracted skin bundles into a game's CrewBoom directory.
package install

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// file suffixes of skin bundles and their override files
const (
	BundleSuffix   = ".cbb"
	OverrideSuffix = ".json"

	// NoCypherDir is the sub directory for bundles that must not be loaded through the
	// character cypher.
	NoCypherDir = "no_cypher"
)

// DefaultOverride is written next to a bundle when overrides are enabled and the
// archive did not ship one.
var DefaultOverride = []byte(`{"CharacterToReplace":"None"}`)

// logger is the logging interface used by [Install].
type logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Option adjusts an installation.
type Option func(*options)

type options struct {
	fs        afero.Fs
	logger    logger
	noCypher  bool
	overrides bool
}

// WithFs sets the filesystem the files are written to. Default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(l logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithNoCypher places bundles in the [NoCypherDir] sub directory.
func WithNoCypher(enable bool) Option {
	return func(o *options) {
		o.noCypher = enable
	}
}

// WithOverrides writes a character override file next to every bundle.
func WithOverrides(enable bool) Option {
	return func(o *options) {
		o.overrides = enable
	}
}

// Install writes every bundle of files into dir, named by the base name of its entry.
// With [WithOverrides] the override file of a bundle is written too: the entry with
// the same name and a .json suffix, or [DefaultOverride] if there is none. Install
// returns the written paths in the order they were written.
func Install(dir string, files map[string][]byte, opts ...Option) ([]string, error) {
	o := &options{
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.noCypher {
		dir = filepath.Join(dir, NoCypherDir)
	}
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create destination: %w", err)
	}

	bundles := lo.Filter(lo.Keys(files), func(name string, _ int) bool {
		return strings.HasSuffix(name, BundleSuffix)
	})
	sort.Strings(bundles)

	var written []string
	seen := make(map[string]string, len(bundles))
	for _, name := range bundles {
		base, err := SafeBase(name)
		if err != nil {
			return written, err
		}
		if prev, ok := seen[base]; ok {
			o.logger.Warn("bundle name collision, overwriting", "name", name, "previous", prev)
		}
		seen[base] = name

		p, err := writeFile(o, dir, base, files[name])
		if err != nil {
			return written, err
		}
		written = append(written, p)

		if !o.overrides {
			continue
		}
		overrideName := OverrideName(name)
		override, ok := files[overrideName]
		if !ok {
			o.logger.Debug("no override shipped, using default", "bundle", name)
			override = DefaultOverride
		}
		p, err = writeFile(o, dir, OverrideName(base), override)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}

	o.logger.Info("installed bundles", "dir", dir, "bundles", len(bundles), "files", len(written))
	return written, nil
}

func writeFile(o *options, dir, base string, data []byte) (string, error) {
	p := filepath.Join(dir, base)
	if err := afero.WriteFile(o.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", base, err)
	}
	o.logger.Debug("installed file", "path", p, "size", len(data))
	return p, nil
}

// OverrideName returns the name of the override file paired with the bundle name.
func OverrideName(name string) string {
	return strings.TrimSuffix(name, BundleSuffix) + OverrideSuffix
}

// SafeBase returns the last element of the archive entry name. Both slash and
// backslash separate elements. Names without a usable last element are rejected.
func SafeBase(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("invalid entry name %q", name)
	}
	return base, nil
}

// RawFile returns the mapping of a bundle that was downloaded without an archive
// around it.
func RawFile(name string, data []byte) (map[string][]byte, error) {
	if !strings.HasSuffix(name, BundleSuffix) {
		return nil, fmt.Errorf("%q is not a %s file: %w", name, BundleSuffix, os.ErrInvalid)
	}
	return map[string][]byte{name: data}, nil
}
