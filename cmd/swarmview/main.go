// swarmview serves the swarm operator console: a satellite map where the
// operator draws a geofence, and live positions of the swarm vehicles
// streamed from the ground control backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swarmview/internal/config"
	"swarmview/internal/logging"
	"swarmview/internal/mapsurface"
	"swarmview/internal/shell"
	"swarmview/internal/swarmlink"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewStructuredLogger(os.Stdout, cfg.Log.Format, level)
	if cfg.Map.AccessToken == "" {
		logger.Warn("no map access token configured, tiles will not load")
	}

	link := swarmlink.New(cfg.BackendURL, swarmlink.Options{
		InitialInterval: cfg.Reconnect.InitialInterval,
		MaxInterval:     cfg.Reconnect.MaxInterval,
		MaxElapsed:      cfg.Reconnect.MaxElapsed,
	}, logger)

	console := shell.New(link, shell.Options{
		Map: mapsurface.Options{
			StyleURL:    cfg.Map.StyleURL,
			Center:      cfg.Map.Center,
			Zoom:        cfg.Map.Zoom,
			AccessToken: cfg.Map.AccessToken,
		},
	}, logger)
	link.OnState = console.SetConnected

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           console.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consoleDone := make(chan struct{})
	go func() {
		console.Run(ctx)
		close(consoleDone)
	}()

	linkErr := make(chan error, 1)
	go func() {
		linkErr <- link.Run(ctx, console.HandleBackendMessage)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr), slog.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-linkErr:
		if err != nil {
			runErr = err
			logging.LogError(logger, "backend link stopped", err)
		}
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(logger, "HTTP server shutdown error", err)
	} else {
		logger.Info("HTTP server shut down successfully")
	}
	<-consoleDone
	return runErr
}
