package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/achievement-hunters/hunter-bot/app"
	"github.com/achievement-hunters/hunter-bot/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		application.Observability.Logger.Error("Application failed", "error", err)
	}

	// A fresh context: the signal context is already canceled by the time
	// shutdown begins.
	application.Shutdown(context.Background())
}
