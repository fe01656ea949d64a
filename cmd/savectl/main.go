// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Command savectl inspects and manages save slots outside the game.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ffutop/savestate/internal/config"
)

const usage = `Usage: savectl [flags] <command> [args]

Commands:
  list                 List the slots of a profile
  inspect <slot>       Print the header of a slot
  rename <slot> <label>
  delete <slots>       Delete slots, e.g. "1,3-5"
  serve                Serve the HTTP API and metrics

Flags:
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "savectl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("savectl", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "Configuration file path.")
	profile := flags.IntP("profile", "p", 0, "Profile id (0 when profiles are not used).")
	logLevel := flags.StringP("log_level", "v", "", "Override log verbosity level (debug, info, warn, error).")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return errUsage
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	setupLogger(cfg.Log)

	cmd, rest := flags.Arg(0), flags.Args()[1:]
	env, err := openEnv(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer env.Close()

	switch cmd {
	case "list":
		return env.list(ctx, *profile)
	case "inspect":
		if len(rest) != 1 {
			return fmt.Errorf("inspect takes one slot id")
		}
		return env.inspect(ctx, *profile, rest[0])
	case "rename":
		if len(rest) != 2 {
			return fmt.Errorf("rename takes a slot id and a label")
		}
		return env.rename(ctx, *profile, rest[0], rest[1])
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("delete takes a slot list")
		}
		return env.delete(ctx, *profile, rest[0])
	case "serve":
		return env.serve(ctx, cfg.API.Address)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		// stdout carries command output
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
