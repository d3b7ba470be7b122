package main

import (
	"flag"
	"log"

	"ai-finance-manager/pkg/config"
	"ai-finance-manager/pkg/logger"
	"ai-finance-manager/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if *down {
		appLogger.Warn("Rolling back the most recent migration", zap.String("path", cfg.Database.MigrationsPath))
		if err := postgres.Rollback(&cfg.Database, appLogger); err != nil {
			appLogger.Fatal("Rollback failed", zap.Error(err))
		}
		return
	}

	appLogger.Info("Applying migrations", zap.String("path", cfg.Database.MigrationsPath))
	if err := postgres.Migrate(&cfg.Database, appLogger); err != nil {
		appLogger.Fatal("Migration failed", zap.Error(err))
	}
}
