package main

import (
	"fmt"
	"os"

	"github.com/crypgo-dev/crypgo-web/internal/config"
	"github.com/crypgo-dev/crypgo-web/internal/devbackend"
	"github.com/crypgo-dev/crypgo-web/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	if cfg.IsProduction() {
		log.Fatal().Msg("The development backend must not run in production")
	}

	db, err := devbackend.OpenDatabase(cfg.DevBackend.DatabasePath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	srv, err := devbackend.New(cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create development backend")
	}

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Development backend failed")
	}
}
