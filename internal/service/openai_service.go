package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-finance-manager/internal/pipeline"
	"ai-finance-manager/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OpenAIService labels receipt lines through any OpenAI compatible
// chat/completions endpoint.
type OpenAIService struct {
	cfg        *config.OpenAIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOpenAIService(cfg *config.OpenAIConfig, httpClient *http.Client, logger *zap.Logger) *OpenAIService {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIService{cfg: cfg, httpClient: httpClient, logger: logger}
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Labels implements pipeline.LabelProvider.
func (s *OpenAIService) Labels(ctx context.Context, descriptions []string) ([]string, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model":           s.cfg.Model,
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": pipeline.ClassificationSystemPrompt()},
			{"role": "user", "content": pipeline.ClassificationUserPrompt(descriptions)},
		},
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := s.post(ctx, endpoint, body)
	if err != nil {
		s.logger.Warn("OpenAI request failed",
			zap.String("req_id", rid),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return nil, err
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in openai response")
	}

	labels, err := pipeline.DecodeLabels(cc.Choices[0].Message.Content, len(descriptions))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Receipt lines classified",
		zap.String("provider", "openai"),
		zap.String("req_id", rid),
		zap.Int("count", len(descriptions)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return labels, nil
}

func (s *OpenAIService) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
