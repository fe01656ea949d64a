// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ffutop/savestate/internal/api"
	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/config"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/slots"
	"github.com/ffutop/savestate/save"
)

// env holds what every command needs.
type env struct {
	out       io.Writer
	backend   persistence.Backend
	codec     *codec.Codec
	directory *slots.Directory
}

func openEnv(ctx context.Context, cfg *config.Config, out io.Writer) (*env, error) {
	backend, err := persistence.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	c, err := codec.FromNames(cfg.Save.Format, cfg.Save.Compression)
	if err != nil {
		backend.Close()
		return nil, err
	}

	var prefs slots.Preferences
	if cfg.Preferences.Path != "" {
		p, err := slots.OpenYAMLPreferences(cfg.Preferences.Path)
		if err != nil {
			backend.Close()
			return nil, err
		}
		prefs = p
	}
	dir := slots.NewDirectory(backend, prefs,
		slots.WithLabelDate(cfg.Save.LabelWithDate),
		slots.WithLogger(slog.Default()),
	)
	return &env{out: out, backend: backend, codec: c, directory: dir}, nil
}

func (e *env) Close() error {
	return e.backend.Close()
}

func (e *env) list(ctx context.Context, profile int) error {
	refs, err := e.directory.Refresh(ctx, profile)
	if err != nil {
		return err
	}
	last := e.directory.LastUsed(profile)

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tLABEL\tUPDATED\tSIZE\tSCREENSHOT\t")
	for _, r := range refs {
		mark := ""
		if r.SlotID == last {
			mark = " *"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%d\t%t\t\n", r.SlotID, mark, r.Label,
			r.UpdatedAt.Format("2006-01-02 15:04:05"), r.Size, r.HasScreenshot)
	}
	return tw.Flush()
}

func (e *env) inspect(ctx context.Context, profile int, arg string) error {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid slot id %q", arg)
	}
	key := save.SlotKey{SlotID: id, ProfileID: profile}
	raw, ok, err := e.backend.Read(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", slots.ErrSlotNotFound, key)
	}
	h, err := e.codec.ExtractMainData(raw)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, string(b))
	return err
}

func (e *env) rename(ctx context.Context, profile int, arg, label string) error {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid slot id %q", arg)
	}
	return e.directory.Rename(ctx, save.SlotKey{SlotID: id, ProfileID: profile}, label)
}

func (e *env) delete(ctx context.Context, profile int, arg string) error {
	ids, err := parseSlotIDs(arg)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no slots given")
	}
	for _, id := range ids {
		if err := e.directory.Delete(ctx, save.SlotKey{SlotID: id, ProfileID: profile}); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "deleted slot %d\n", id)
	}
	return nil
}

func (e *env) serve(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	srv := api.NewServer(e.directory, e.backend, e.codec, slog.Default(), api.WithMetrics(m, reg))
	slog.Info("Starting savectl API server", "address", addr)
	err := srv.ListenAndServe(ctx, addr)
	slog.Info("Goodbye.")
	return err
}
