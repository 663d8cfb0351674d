package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"payflow-backend/internal/app"
	"payflow-backend/internal/config"
	"payflow-backend/pkg/logger"
	"payflow-backend/pkg/validator"
)

func main() {
	dotenvErr := godotenv.Load()

	cfg := config.New()

	logger.Init(cfg.Environment)
	// Ensure any log file opened by the logger is closed on exit
	defer func() {
		if err := logger.Close(); err != nil {
			logger.Error(err, "Failed to close log file", nil)
		}
	}()

	logger.Info("Starting PayFlow backend", nil)
	if dotenvErr != nil {
		logger.Info("No .env file found, using environment variables", nil)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error(err, "Invalid configuration", nil)
		os.Exit(1)
	}

	validator.Init()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Error(err, "Failed to initialize sentry", nil)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	application, err := app.New(cfg)
	if err != nil {
		logger.Error(err, "Failed to initialize application", nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		if err := application.Run(); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "Failed to start server", nil)
			serverErr <- err
		}
	}()

	// Wait for either interrupt signal or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...", nil)
	case err := <-serverErr:
		logger.Error(err, "Server error occurred, initiating shutdown", nil)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server forced to shutdown", nil)
		os.Exit(1)
	}

	logger.Info("Server exited gracefully", nil)
}
