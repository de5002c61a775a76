package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akm-xdd/igap-club/internal/app"
	"github.com/akm-xdd/igap-club/internal/config"
	"github.com/akm-xdd/igap-club/pkg/logger"
	"github.com/akm-xdd/igap-club/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.InitWithFormat(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
		} else {
			logger.Infof("connected to Redis at %s", cfg.Redis.Addr())
		}
	}

	backend, err := app.OpenBackend(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Storage.Backend, err)
	}
	defer backend.Close()

	verifier := app.NewVerifier(ctx, cfg)
	if verifier == nil && backend.Policy.RequireAuth {
		logger.Warnf("backend %s requires authentication but no token verifier is configured", backend.Name)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := app.NewRouter(app.Deps{Config: cfg, Backend: backend, Verifier: verifier, Redis: rdb})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Infof("posts service listening on %s (backend=%s redis=%v verifier=%v)", srv.Addr, backend.Name, rdb != nil, verifier != nil)

	select {
	case sig := <-sigCh:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error shutting down http server: %v", err)
	}
	return nil
}
