package main

import (
	"log"

	"github.com/alkime/practice/internal/config"
	"github.com/alkime/practice/internal/logger"
	"github.com/alkime/practice/internal/server"
	"github.com/alkime/practice/internal/store"
	"github.com/alkime/practice/internal/workdir"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	lg := logger.SetupLogger(cfg)

	lg.Info("Starting practice server",
		"env", cfg.Env,
		"port", cfg.Port,
		"dataDir", cfg.DataDir,
	)

	if err := workdir.Prep(cfg.DataDir); err != nil {
		log.Fatalf("Fatal: %v", err)
	}

	srv := server.New(cfg, lg, store.NewOS(cfg.DataDir))
	if err := server.Run(srv); err != nil {
		lg.Error("Server failed", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}
