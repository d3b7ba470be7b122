package main

import (
	"context"

	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/internal/service"
	"ai-finance-manager/pkg/config"

	"go.uber.org/zap"
)

func newExtractor(cfg *config.OCRConfig, logger *zap.Logger) pipeline.TextExtractor {
	switch cfg.Provider {
	case "gosseract":
		logger.Info("OCR engine: gosseract", zap.Strings("languages", cfg.Languages))
		return pipeline.NewTesseractExtractor(cfg.Languages, cfg.PageSegMode, logger)
	case "cli":
		logger.Info("OCR engine: tesseract binary", zap.String("binary", cfg.TesseractPath))
		return pipeline.NewTesseractCLIExtractor(cfg.TesseractPath, cfg.Languages, cfg.PageSegMode, logger)
	default:
		logger.Warn("OCR is disabled, receipt processing will answer 503", zap.String("provider", cfg.Provider))
		return pipeline.UnavailableExtractor{Reason: "OCR_PROVIDER=" + cfg.Provider}
	}
}

// newLabelProvider returns nil when classification is disabled; every item is
// then categorized as OTHER. A GigaChat client that cannot start degrades to
// the keyword table instead of stopping the service.
func newLabelProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (pipeline.LabelProvider, func()) {
	noop := func() {}

	switch cfg.Classifier.Provider {
	case "gigachat":
		llm, err := service.NewLLMService(ctx, &cfg.GigaChat, logger)
		if err != nil {
			logger.Warn("GigaChat unavailable, falling back to keyword classifier", zap.Error(err))
			return pipeline.NewKeywordProvider(nil), noop
		}
		return llm, func() {
			if err := llm.Close(); err != nil {
				logger.Warn("Failed to close GigaChat client", zap.Error(err))
			}
		}
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set, falling back to keyword classifier")
			return pipeline.NewKeywordProvider(nil), noop
		}
		return service.NewOpenAIService(&cfg.OpenAI, nil, logger), noop
	case "keywords":
		return pipeline.NewKeywordProvider(nil), noop
	default:
		logger.Info("Category classification disabled", zap.String("provider", cfg.Classifier.Provider))
		return nil, noop
	}
}
