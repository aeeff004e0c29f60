package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	"github.com/tendant/simple-authority/pkg/simpleauthority/api"
	"github.com/tendant/simple-authority/pkg/simpleauthority/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration from environment
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	// Build service from configuration
	built, err := serverConfig.BuildService(context.Background(), logger)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer built.Close()

	var auth *jwtauth.JWTAuth
	if serverConfig.JWTSecret != "" {
		auth = jwtauth.New("HS256", []byte(serverConfig.JWTSecret), nil)
	} else {
		slog.Warn("JWT_SECRET not set, authority updates will be rejected")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           NewRouter(built.Service, auth, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Simple Authority Server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType(),
			"person_updates", serverConfig.AllowPersonUpdates,
			"orcid_updates", serverConfig.AllowOrcidUpdates)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
	}

	slog.Info("Server exiting")
}

// NewRouter sets up the HTTP routes
func NewRouter(svc simpleauthority.Service, auth *jwtauth.JWTAuth, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggingMiddleware(logger))
	r.Use(api.MetricsMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Handle("/metrics", promhttp.Handler())

	authorityHandler := api.NewAuthorityHandler(svc, auth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/authorities", authorityHandler.Routes())
	})

	return r
}
