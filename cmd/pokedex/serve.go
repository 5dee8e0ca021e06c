package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-client/pkg/aggregate"
	"github.com/Sternrassler/pokedex-client/pkg/client"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/Sternrassler/pokedex-client/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr string
}

func newServeCmd(rootFlags *rootFlags) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gallery and detail views as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, rootFlags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, rootFlags *rootFlags, opts *serveOptions) error {
	c, err := rootFlags.newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()

	addr := opts.addr
	if addr == "" {
		addr = c.Config().Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger("pokedex-server")
	srv := &http.Server{
		Addr:              addr,
		Handler:           newServer(c, logger).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Starting pokedex server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down pokedex server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type server struct {
	client *client.Client
	logger zerolog.Logger
}

func newServer(c *client.Client, logger zerolog.Logger) *server {
	return &server{client: c, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /ready", s.ready)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/pokemon", s.page)
	mux.HandleFunc("GET /api/pokemon/{name}", s.detail)
	mux.HandleFunc("POST /api/favorites/{id}", s.toggleFavorite)
	return mux
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ping(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Readiness check failed")
		http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

func (s *server) page(w http.ResponseWriter, r *http.Request) {
	n := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page %q", raw))
			return
		}
		n = v
	}

	page, err := s.client.Page(r.Context(), n)
	if err != nil {
		s.writeChainError(w, err)
		return
	}
	if page.Cancelled {
		// The caller went away; nobody reads the answer.
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *server) detail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.client.Detail(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeChainError(w, err)
		return
	}
	if detail == nil {
		s.writeError(w, http.StatusBadRequest, "name or id required")
		return
	}
	if detail.Cancelled {
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", r.PathValue("id")))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"favorite":  s.client.ToggleFavorite(id),
		"favorites": s.client.Favorites(),
	})
}

// writeChainError maps aggregation failures onto HTTP statuses: a missing
// record is 404, any other upstream failure 502.
func (s *server) writeChainError(w http.ResponseWriter, err error) {
	var chainErr *aggregate.ChainError
	switch {
	case errors.Is(err, aggregate.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &chainErr):
		s.writeError(w, http.StatusBadGateway, chainErr.Message)
	case errors.Is(err, client.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
