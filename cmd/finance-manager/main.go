package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ai-finance-manager/internal/api"
	"ai-finance-manager/internal/api/handlers"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/repository"
	"ai-finance-manager/internal/service"
	"ai-finance-manager/internal/storage"
	"ai-finance-manager/pkg/auth"
	"ai-finance-manager/pkg/config"
	"ai-finance-manager/pkg/logger"
	"ai-finance-manager/pkg/postgres"

	"go.uber.org/zap"
)

// @title AI Finance Manager API
// @version 1.0
// @description Receipt photo to categorized expenses: OCR, line item parsing, AI categories, review and confirm.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting finance manager service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	expenseRepo := repository.NewExpenseRepository(db, appLogger)
	budgetRepo := repository.NewBudgetRepository(db, appLogger)

	store, err := storage.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		appLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Receipt pipeline
	normOpts := pipeline.DefaultNormalizerOptions()
	normOpts.MaxBytes = cfg.Upload.MaxBytes
	normOpts.MaxDimension = cfg.Receipt.MaxDimension
	normOpts.MaxPixels = cfg.Receipt.MaxPixels
	normalizer := pipeline.NewNormalizer(normOpts, appLogger)

	extractor := newExtractor(&cfg.OCR, appLogger)

	provider, closeProvider := newLabelProvider(ctx, cfg, appLogger)
	defer closeProvider()
	classifier := pipeline.NewCategoryClassifier(provider, cfg.Classifier.Timeout, appLogger)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, cfg.Receipt.DefaultCurrency, appLogger)
	receiptService := service.NewReceiptService(
		normalizer,
		extractor,
		classifier,
		store,
		expenseRepo,
		userRepo,
		service.ReceiptOptions{
			DefaultCurrency: cfg.Receipt.DefaultCurrency,
			KeepNormalized:  cfg.Upload.KeepNormalized,
			CommitAttempts:  cfg.Receipt.CommitAttempts,
			CommitBackoff:   cfg.Receipt.CommitBackoff,
		},
		appLogger,
	)
	expenseService := service.NewExpenseService(expenseRepo, appLogger)
	budgetService := service.NewBudgetService(budgetRepo, expenseRepo, userRepo, appLogger)

	// Setup router
	app := api.SetupRouter(&cfg.Server, api.Handlers{
		Auth:    handlers.NewAuthHandler(authService, appLogger),
		Receipt: handlers.NewReceiptHandler(receiptService, appLogger),
		Expense: handlers.NewExpenseHandler(expenseService, appLogger),
		Budget:  handlers.NewBudgetHandler(budgetService, appLogger),
	}, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
