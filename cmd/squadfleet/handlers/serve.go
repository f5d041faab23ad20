package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/imamik/squadfleet/internal/api"
)

const shutdownTimeout = 15 * time.Second

// ServeOptions contains options for the serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string
}

// Serve runs the HTTP API until ctx is cancelled.
func Serve(ctx context.Context, opts ServeOptions) error {
	app, err := newApp(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	addr := opts.Addr
	if addr == "" {
		addr = app.Config.HTTP.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(app.Deployer, app.Planner, app.Log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	app.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
