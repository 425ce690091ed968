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

	"github.com/tendant/materialize-demo/pkg/blogsite"
	"github.com/tendant/materialize-demo/pkg/blogsite/config"
	"github.com/tendant/materialize-demo/pkg/blogsite/seed"
)

func main() {
	envConfig, err := loadEnvConfig()
	if err != nil {
		slog.Error("Failed to load environment", "error", err)
		os.Exit(1)
	}

	opts, err := envConfig.Options()
	if err != nil {
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	serverConfig, err := config.Load(opts...)
	if err != nil {
		slog.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	err = serverConfig.Ping(pingCtx)
	cancelPing()
	if err != nil {
		slog.Error("Database is not reachable", "database", serverConfig.DatabaseType, "error", err)
		os.Exit(1)
	}

	if envConfig.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := serverConfig.Migrate(ctx)
		cancel()
		if err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	if envConfig.SeedDemo {
		if err := seedDemo(context.Background(), svc); err != nil {
			slog.Error("Failed to seed demo content", "error", err)
			os.Exit(1)
		}
	}

	server := NewHTTPServer(svc, serverConfig)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: server.Routes(),
	}

	go func() {
		slog.Info("Blog site server starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"debug", serverConfig.Debug,
			"database", serverConfig.DatabaseType,
			"default_storage", serverConfig.DefaultStorageBackend,
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
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
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

// seedDemo loads the built-in demo site unless pages already exist.
func seedDemo(ctx context.Context, svc blogsite.Service) error {
	roots, err := svc.ListRoots(ctx)
	if err != nil {
		return err
	}
	if len(roots) > 0 {
		slog.Info("Skipping demo seed, pages already exist", "roots", len(roots))
		return nil
	}

	fx, files, err := seed.Demo()
	if err != nil {
		return err
	}
	res, err := seed.Apply(ctx, svc, fx, files)
	if err != nil {
		return err
	}
	slog.Info("Seeded demo site", "home_id", res.Home.ID, "posts", len(res.Posts))
	return nil
}
