package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/classbridge/records-admin-service/internal/app"
	"github.com/classbridge/records-admin-service/internal/config"
	"github.com/classbridge/records-admin-service/internal/utils/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := app.Run(cfg, log); err != nil {
		log.Fatal("Service exited with error", zap.Error(err))
	}
}
