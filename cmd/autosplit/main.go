// main.go: autosplit command-line entry point
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// autosplit copies newline-framed records from stdin into a rotating log directory.
//
// Usage:
//
//	autosplit [options] < records
//
// Options:
//
//	-d, --dir           log directory (required, must exist)
//	-F, --max-files     maximum number of archives (0 = unlimited)
//	-S, --max-space     maximum total archive size, e.g. 512MB (0 = unlimited)
//	-s, --soft-limit    current-file size that triggers rotation (default 10MB)
//	-t, --rotate-after  rotation interval, e.g. 3600 or 1h (0 = disabled)
//	-z, --compress      compression method: none or gzip
//	-c, --config        YAML or JSON configuration file; flags take precedence
//	    --watch         reload retention and limits when the config file changes
//	    --log-level     debug, info, warn or error
//	-V, --version       print the version
//
// Exit codes:
//
//	0: input exhausted or interrupted
//	1: the current file could not be opened or the input failed
//	2: configuration error
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agilira/autosplit"
	"github.com/urfave/cli/v3"
)

// Version information, injectable with -ldflags "-X main.Version=..."
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

const (
	exitFailure = 1
	exitUsage   = 2

	// tickInterval drives time-based rotation on idle input
	tickInterval = time.Second
)

// exitError carries the process exit code for err
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := createApp(stdin, stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintf(stderr, "autosplit: %v\n", err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		// Flag parsing failures never reach the action
		return exitUsage
	}
	return 0
}

func createApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "autosplit",
		Usage:     "split a record stream into rotated, size- and time-bounded archives",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "log directory (must exist)",
			},
			&cli.UintFlag{
				Name:    "max-files",
				Aliases: []string{"F"},
				Usage:   "maximum number of archives, 0 for unlimited",
			},
			&cli.StringFlag{
				Name:    "max-space",
				Aliases: []string{"S"},
				Usage:   "maximum total archive size, 0 for unlimited",
			},
			&cli.StringFlag{
				Name:    "soft-limit",
				Aliases: []string{"s"},
				Usage:   "current-file size that triggers rotation",
			},
			&cli.StringFlag{
				Name:    "rotate-after",
				Aliases: []string{"t"},
				Usage:   "rotation interval in seconds or as a duration, 0 to disable",
			},
			&cli.StringFlag{
				Name:    "compress",
				Aliases: []string{"z"},
				Usage:   "compression method: none or gzip",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML or JSON configuration file",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "reload limits when the configuration file changes",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "warn",
			},
		},
		// Exit codes are mapped in run, never by the framework
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action:         runEngine,
	}
}

func runEngine(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.String("log-level"), cmd.Root().ErrWriter)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	cfg.Logger = logger

	engine, err := autosplit.NewWithConfig(cfg)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("closing current file", slog.String("error", err.Error()))
		}
	}()

	if cmd.Bool("watch") {
		path := cmd.String("config")
		if path == "" {
			return &exitError{code: exitUsage, err: errors.New("--watch needs --config")}
		}
		watcher, err := autosplit.WatchConfig(path, engine, func(_ *autosplit.Config, err error) {
			if err != nil {
				logger.Warn("configuration reload failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("configuration reloaded", slog.String("path", path))
		})
		if err != nil {
			return &exitError{code: exitFailure, err: err}
		}
		defer watcher.Stop()
	}

	logger.Debug("copying records",
		slog.String("dir", engine.Dir()),
		slog.String("compression", engine.Compression()))
	return pump(ctx, engine, cmd.Root().Reader, logger, tickInterval)
}

// buildConfig loads the optional configuration file and applies flag overrides
func buildConfig(cmd *cli.Command) (*autosplit.Config, error) {
	cfg := &autosplit.Config{}
	if path := cmd.String("config"); path != "" {
		loaded, err := autosplit.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.IsSet("dir") {
		cfg.Dir = cmd.String("dir")
	}
	if cmd.IsSet("max-files") {
		cfg.MaxFiles = cmd.Uint("max-files")
	}
	if cmd.IsSet("max-space") {
		cfg.MaxSpace, cfg.MaxSpaceStr = 0, cmd.String("max-space")
	}
	if cmd.IsSet("soft-limit") {
		cfg.SoftLimit, cfg.SoftLimitStr = 0, cmd.String("soft-limit")
	}
	if cmd.IsSet("rotate-after") {
		cfg.RotateAfter, cfg.RotateAfterStr = 0, cmd.String("rotate-after")
	}
	if cmd.IsSet("compress") {
		cfg.Compression = cmd.String("compress")
	}
	return cfg, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

// pump writes every line read from r to the engine and checks rotation after
// each record and on every tick. It returns nil at end of input or when ctx
// is cancelled.
func pump(ctx context.Context, engine *autosplit.Engine, r io.Reader, logger *slog.Logger, interval time.Duration) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	check := func() error {
		err := engine.RotateIfNeeded()
		if err == nil {
			return nil
		}
		if errors.Is(err, autosplit.ErrCurrentUnavailable) {
			return &exitError{code: exitFailure, err: err}
		}
		logger.Warn("rotation failed", slog.String("error", err.Error()))
		return nil
	}

	if err := check(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return &exitError{code: exitFailure, err: fmt.Errorf("reading records: %w", err)}
				default:
					return nil
				}
			}
			if _, err := engine.Write(line); err != nil {
				if errors.Is(err, autosplit.ErrCurrentUnavailable) {
					return &exitError{code: exitFailure, err: err}
				}
				logger.Warn("record dropped", slog.Int("size", len(line)), slog.String("error", err.Error()))
			}
			if err := check(); err != nil {
				return err
			}

		case <-ticker.C:
			if err := check(); err != nil {
				return err
			}
		}
	}
}
