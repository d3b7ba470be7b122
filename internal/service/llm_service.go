package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// LLMService labels receipt lines with GigaChat.
type LLMService struct {
	client *gigago.Client
	model  *gigago.GenerativeModel
	config *config.GigaChatConfig
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GIGACHAT_API_KEY is not set")
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "GigaChat"
	}
	model := client.GenerativeModel(modelName)
	model.SystemInstruction = pipeline.ClassificationSystemPrompt()
	model.Temperature = 0.1

	logger.Info("Using GigaChat model", zap.String("model", modelName))

	return &LLMService{
		client: client,
		model:  model,
		config: cfg,
		logger: logger,
	}, nil
}

// Labels implements pipeline.LabelProvider.
func (s *LLMService) Labels(ctx context.Context, descriptions []string) ([]string, error) {
	start := time.Now()
	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: pipeline.ClassificationUserPrompt(descriptions)},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	labels, err := pipeline.DecodeLabels(content, len(descriptions))
	if err != nil {
		s.logger.Warn("GigaChat returned unusable labels", zap.String("content", content), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Receipt lines classified",
		zap.String("provider", "gigachat"),
		zap.Int("count", len(descriptions)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return labels, nil
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
