// Package main runs the New Manyatta image API and asset origin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/infrastructure/container"
)

func main() {
	configPath := flag.String("config", "", "configuration file (default: ./config.yaml, ./config/config.yaml)")
	flag.Parse()

	var shutdownTimeout time.Duration
	app := fx.New(
		fx.NopLogger, // Use our own logger instead of Fx's

		fx.Supply(container.ConfigPath(*configPath)),
		container.Module,

		fx.Invoke(func(cfg *config.Config) {
			shutdownTimeout = cfg.Server.ShutdownTimeout
		}),
	)
	if err := app.Err(); err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Fatalf("Failed to stop application gracefully: %v", err)
	}
}
