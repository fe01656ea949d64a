// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package api serves read-mostly HTTP access to save slots for tooling.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ffutop/savestate/internal/codec"
	"github.com/ffutop/savestate/internal/metrics"
	"github.com/ffutop/savestate/internal/persistence"
	"github.com/ffutop/savestate/internal/slots"
)

// Server wraps the slot handlers.
type Server struct {
	directory *slots.Directory
	backend   persistence.Backend
	codec     *codec.Codec
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	router    *mux.Router
}

type Option func(*Server)

// WithMetrics times every /v1 request into m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// NewServer creates the router. Without WithMetrics /metrics is not registered.
func NewServer(directory *slots.Directory, backend persistence.Backend, c *codec.Codec, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		directory: directory,
		backend:   backend,
		codec:     c,
		logger:    logger,
		router:    mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Use(s.instrument)

	slot := "/profiles/{profile:[0-9]+}/slots/{slot:[0-9]+}"
	v1.HandleFunc("/profiles/{profile:[0-9]+}/slots", s.handleList).Methods("GET").Name("list")
	v1.HandleFunc(slot, s.handleDelete).Methods("DELETE").Name("delete")
	v1.HandleFunc(slot+"/label", s.handleRename).Methods("PUT").Name("rename")
	v1.HandleFunc(slot+"/header", s.handleHeader).Methods("GET").Name("header")
	v1.HandleFunc(slot+"/screenshot", s.handleScreenshot).Methods("GET").Name("screenshot")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// instrument records the duration of a matched /v1 request as op "api_<route>".
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			s.metrics.ObserveDuration("api_"+route.GetName(), time.Since(start))
		}
	})
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
