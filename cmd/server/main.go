package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"wandertrails_backend/internal/app/di"
	"wandertrails_backend/internal/app/router"
	authhandler "wandertrails_backend/internal/feature/auth/transport/handler"
	"wandertrails_backend/internal/platform/config"
	"wandertrails_backend/internal/shared/ratelimiter"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env", ".env.local", "../.env")
	if err != nil {
		return err
	}

	setupLogger(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Auth backend
	auth, cleanup, err := di.NewAuthService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Handler
	authH := authhandler.NewAuthHandler(auth, authhandler.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.TokenTTL(),
	}, cfg.ExposeResetURL)

	var limiter *ratelimiter.RateLimiter
	if cfg.AuthRateLimitPerMinute > 0 {
		limiter = ratelimiter.NewRateLimiter(cfg.AuthRateLimitPerMinute, time.Minute)
	}

	r, err := router.NewRouter(router.Config{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowLocalhost: !cfg.IsProduction(),
		CookieName:     cfg.CookieName,
		TrustedProxies: cfg.TrustedProxies(),
	}, authH, limiter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("auth server listening", "port", cfg.Port, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupLogger installs a JSON handler in production and a text handler elsewhere.
func setupLogger(cfg config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}
