package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/passoworker/config"
	"sjsage522/passoworker/internal/cli"
	"sjsage522/passoworker/logger"
	"sjsage522/passoworker/pkg/errors"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()

	log.Info().
		Str("environment", cfg.Environment).
		Str("start_url", cfg.StartURL).
		Str("category", cfg.CategoryLabel).
		Msg("Starting application")

	// Cancelled on SIGINT/SIGTERM; a running detail fetch still closes its tab
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd(cfg, cli.NewSessionDriver)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if se, ok := errors.As(err); ok {
			log.Error().
				Str("type", string(se.Type)).
				Str("stage", se.Stage).
				Bool("fatal", se.IsFatal()).
				Msg(se.Message)
		}
		logger.LogError("main", err, "Exited with error")
		stop()
		os.Exit(1)
	}

	logger.Info("Shut down gracefully")
}
