package main

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ai-finance-manager/internal/dto"
	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/repository"
	"ai-finance-manager/internal/service"
	"ai-finance-manager/internal/storage"
	"ai-finance-manager/pkg/auth"
	"ai-finance-manager/pkg/config"
	"ai-finance-manager/pkg/logger"
	"ai-finance-manager/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	seedDir := flag.String("dir", filepath.Join("cmd", "seed", "receipts"), "directory with receipt photos")
	email := flag.String("email", "demo@example.com", "demo user email")
	password := flag.String("password", "demo123", "demo user password")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, "console")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db, appLogger)
	expenseRepo := repository.NewExpenseRepository(db, appLogger)

	store, err := storage.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		appLogger.Fatal("Failed to prepare upload directory", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)
	authService := service.NewAuthService(userRepo, jwtManager, cfg.Receipt.DefaultCurrency, appLogger)

	user, err := demoUser(ctx, authService, *email, *password)
	if err != nil {
		appLogger.Fatal("Failed to prepare demo user", zap.Error(err))
	}
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		appLogger.Fatal("Demo user has an invalid id", zap.Error(err))
	}

	// Seeding runs offline: keyword categories keep the result reproducible.
	normOpts := pipeline.DefaultNormalizerOptions()
	normOpts.MaxBytes = cfg.Upload.MaxBytes
	normOpts.MaxDimension = cfg.Receipt.MaxDimension
	normOpts.MaxPixels = cfg.Receipt.MaxPixels
	receipts := service.NewReceiptService(
		pipeline.NewNormalizer(normOpts, appLogger),
		pipeline.NewTesseractExtractor(cfg.OCR.Languages, cfg.OCR.PageSegMode, appLogger),
		pipeline.NewCategoryClassifier(pipeline.NewKeywordProvider(nil), cfg.Classifier.Timeout, appLogger),
		store,
		expenseRepo,
		userRepo,
		service.ReceiptOptions{
			DefaultCurrency: cfg.Receipt.DefaultCurrency,
			CommitAttempts:  cfg.Receipt.CommitAttempts,
			CommitBackoff:   cfg.Receipt.CommitBackoff,
		},
		appLogger,
	)

	appLogger.Info("Starting database seeding...", zap.String("user", user.Email))

	cacheFile := filepath.Join(*seedDir, ".seed_cache.json")
	if err := seedReceipts(ctx, *seedDir, cacheFile, userID, receipts, appLogger); err != nil {
		appLogger.Fatal("Failed to seed receipts", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

func demoUser(ctx context.Context, authService *service.AuthService, email, password string) (*dto.UserResponse, error) {
	resp, err := authService.Register(ctx, &dto.RegisterRequest{
		Email:    email,
		Password: password,
	})
	if errors.Is(err, service.ErrUserExists) {
		resp, err = authService.Login(ctx, &dto.LoginRequest{Email: email, Password: password})
	}
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// ProcessedFile represents a seeded receipt in cache
type ProcessedFile struct {
	FilePath    string    `json:"file_path"`
	FileHash    string    `json:"file_hash"`
	ImagePath   string    `json:"image_path"`
	Expenses    int       `json:"expenses"`
	ProcessedAt time.Time `json:"processed_at"`
}

// CacheData stores information about processed files
type CacheData struct {
	ProcessedFiles map[string]ProcessedFile `json:"processed_files"` // key: file path
}

// loadCache loads the cache of processed files
func loadCache(cacheFile string) (*CacheData, error) {
	cache := &CacheData{
		ProcessedFiles: make(map[string]ProcessedFile),
	}

	data, err := os.ReadFile(cacheFile)
	if errors.Is(err, os.ErrNotExist) {
		return cache, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	if len(data) == 0 {
		return cache, nil
	}

	if err := json.Unmarshal(data, cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}

	return cache, nil
}

// saveCache saves the cache of processed files
func saveCache(cacheFile string, cache *CacheData) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// calculateFileHash calculates MD5 hash of a file
func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

func receiptFiles(seedDir string) ([]string, error) {
	entries, err := os.ReadDir(seedDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(seedDir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// seedReceipts runs preview and confirm for every receipt photo not seeded yet.
func seedReceipts(
	ctx context.Context,
	seedDir string,
	cacheFile string,
	userID uuid.UUID,
	receipts *service.ReceiptService,
	logger *zap.Logger,
) error {
	cache, err := loadCache(cacheFile)
	if err != nil {
		logger.Warn("Failed to load cache, will process all files", zap.Error(err))
		cache = &CacheData{ProcessedFiles: make(map[string]ProcessedFile)}
	}

	files, err := receiptFiles(seedDir)
	if err != nil {
		return fmt.Errorf("failed to list seed directory: %w", err)
	}
	if len(files) == 0 {
		logger.Warn("No receipt photos found", zap.String("dir", seedDir))
		return nil
	}

	for _, file := range files {
		fileHash, err := calculateFileHash(file)
		if err != nil {
			logger.Warn("Failed to calculate file hash, will process anyway", zap.String("path", file), zap.Error(err))
		}

		if cached, exists := cache.ProcessedFiles[file]; exists && cached.FileHash == fileHash {
			logger.Info("Receipt already seeded, skipping",
				zap.String("path", file),
				zap.Time("processed_at", cached.ProcessedAt),
			)
			continue
		}

		entry, err := seedReceipt(ctx, file, userID, receipts)
		if err != nil {
			logger.Error("Failed to seed receipt", zap.String("path", file), zap.Error(err))
			continue
		}
		entry.FileHash = fileHash
		cache.ProcessedFiles[file] = *entry

		logger.Info("Receipt seeded",
			zap.String("path", file),
			zap.String("image_path", entry.ImagePath),
			zap.Int("expenses", entry.Expenses),
		)
	}

	if err := saveCache(cacheFile, cache); err != nil {
		logger.Warn("Failed to save cache", zap.Error(err))
	} else {
		logger.Info("Cache saved", zap.Int("processed_files", len(cache.ProcessedFiles)))
	}

	return nil
}

func seedReceipt(ctx context.Context, file string, userID uuid.UUID, receipts *service.ReceiptService) (*ProcessedFile, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	preview, err := receipts.Preview(ctx, pipeline.RawUpload{
		PrincipalID: userID,
		ContentType: http.DetectContentType(data),
		Size:        int64(len(data)),
		Data:        data,
	})
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}

	entry := &ProcessedFile{
		FilePath:    file,
		ImagePath:   preview.ImagePath,
		ProcessedAt: time.Now(),
	}
	if len(preview.Items) == 0 {
		return entry, nil
	}

	confirmed, err := receipts.Confirm(ctx, userID, &dto.ReceiptConfirmRequest{
		ImagePath: preview.ImagePath,
		Expenses:  preview.Items,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	entry.Expenses = len(confirmed.CreatedItems)
	return entry, nil
}
