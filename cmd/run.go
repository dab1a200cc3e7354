// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/skindl/skindl"
	"github.com/skindl/skindl/fetch"
	"github.com/skindl/skindl/install"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// CLI are the cli parameters for the skindl binary
type CLI struct {
	Inputs            []string         `arg:"" name:"inputs" help:"Archives or raw .cbb files to install. Paths, http(s) URLs or \"-\" for STDIN."`
	Destination       string           `short:"d" default:"." help:"CrewBoom directory the bundles are installed into."`
	Format            string           `short:"f" optional:"" help:"Format of the inputs (zip, rar, 7z). Derived from the input name if empty."`
	Jobs              int              `short:"j" default:"4" help:"Number of inputs that are processed concurrently."`
	List              bool             `short:"l" help:"List the matched entries instead of installing them."`
	MaxEntrySize      int64            `optional:"" default:"1073741824" help:"Maximum size of a single matched entry (in bytes). (disable check: -1)"`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum size of all matched entries of an archive (in bytes). (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size that allowed is (in bytes). (disable check: -1)"`
	MaxTime           int64            `optional:"" default:"300" help:"Maximum time that all inputs together may take (in seconds). (disable check: -1)"`
	Metrics           bool             `short:"M" optional:"" default:"false" help:"Print metrics to log after extraction."`
	NoCypher          bool             `help:"Install bundles into the no_cypher sub directory."`
	Overrides         bool             `short:"o" help:"Install a character override file next to every bundle."`
	TempDir           string           `optional:"" help:"Directory for temporary files. Defaults to the OS temp directory."`
	Verbose           bool             `short:"v" optional:"" help:"Verbose logging."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into skindl as a cli tool
func Run(version, commit, date string) {
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Installs CrewBoom character bundles from zip, rar and 7z archives"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	} else if cli.Metrics {
		logLevel = slog.LevelInfo
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	ctx := context.Background()
	if cli.MaxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*time.Duration(cli.MaxTime))
		defer cancel()
	}

	if err := run(ctx, &cli, logger, os.Stdin, os.Stdout); err != nil {
		logger.Error("skindl failed", "error", err)
		os.Exit(1)
	}
}

// run processes all inputs of cli. Inputs are fetched and extracted concurrently and
// installed in the order they were given.
func run(ctx context.Context, cli *CLI, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	// setup telemetry hook
	telemetryToLog := func(ctx context.Context, td *skindl.TelemetryData) {
		if cli.Metrics {
			logger.Info("extraction finished", "telemetry", td)
		}
	}

	opts := []skindl.ConfigOption{
		skindl.WithLogger(logger),
		skindl.WithMaxEntrySize(cli.MaxEntrySize),
		skindl.WithMaxExtractionSize(cli.MaxExtractionSize),
		skindl.WithMaxInputSize(cli.MaxInputSize),
		skindl.WithTelemetryHook(telemetryToLog),
	}
	if cli.TempDir != "" {
		opts = append(opts, skindl.WithTempSpace(skindl.NewTempSpace(afero.NewOsFs(), cli.TempDir)))
	}

	results := make([]map[string][]byte, len(cli.Inputs))
	g, ctx := errgroup.WithContext(ctx)
	if cli.Jobs > 0 {
		g.SetLimit(cli.Jobs)
	}
	for i, input := range cli.Inputs {
		g.Go(func() error {
			files, err := process(ctx, cli, logger, input, stdin, opts)
			if err != nil {
				return errors.Wrapf(err, "input %s", input)
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, files := range results {
		if cli.List {
			list(stdout, cli.Inputs[i], files)
			continue
		}
		written, err := install.Install(cli.Destination, files,
			install.WithLogger(logger),
			install.WithNoCypher(cli.NoCypher),
			install.WithOverrides(cli.Overrides),
		)
		if err != nil {
			return errors.Wrapf(err, "install %s", cli.Inputs[i])
		}
		for _, p := range written {
			fmt.Fprintln(stdout, p)
		}
	}
	return nil
}

// process loads one input and returns its wanted entries. Raw bundles are passed
// through without extraction.
func process(ctx context.Context, cli *CLI, logger *slog.Logger, input string, stdin io.Reader, opts []skindl.ConfigOption) (map[string][]byte, error) {
	name, data, err := load(ctx, input, logger, stdin, cli.MaxInputSize)
	if err != nil {
		return nil, err
	}

	if cli.Format == "" && strings.HasSuffix(name, install.BundleSuffix) {
		return install.RawFile(name, data)
	}

	formatName := name
	if cli.Format != "" {
		formatName = "input." + cli.Format
	}
	format, err := skindl.FormatFromName(formatName)
	if err != nil {
		return nil, err
	}
	return skindl.Extract(ctx, data, format, opts...)
}

// load reads input from a URL, STDIN or the filesystem. The returned name is used to
// derive the format.
func load(ctx context.Context, input string, logger *slog.Logger, stdin io.Reader, maxSize int64) (string, []byte, error) {
	switch {
	case input == "-":
		r := stdin
		if maxSize >= 0 {
			r = io.LimitReader(stdin, maxSize+1)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", nil, errors.Wrap(err, "cannot read STDIN")
		}
		return "stdin", data, nil

	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		u, err := url.Parse(input)
		if err != nil {
			return "", nil, errors.Wrap(err, "invalid url")
		}
		data, err := fetch.Fetch(ctx, input,
			fetch.WithLogger(logger),
			fetch.WithMaxSize(maxSize),
			fetch.WithProgress(func(current, total int64) {
				logger.Debug("download progress", "url", input, "current", humanize.IBytes(uint64(current)), "total", total)
			}),
		)
		if err != nil {
			return "", nil, err
		}
		return path.Base(u.Path), data, nil
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return "", nil, errors.Wrap(err, "cannot read file")
	}
	return filepath.Base(input), data, nil
}

// list prints the entries of files sorted by name.
func list(w io.Writer, input string, files map[string][]byte) {
	names := lo.Keys(files)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\t%s\n", input, name, humanize.IBytes(uint64(len(files[name]))))
	}
}
