//go:build cgo

package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractExtractor runs OCR in-process through libtesseract.
type TesseractExtractor struct {
	languages     []string
	pageSegMode   gosseract.PageSegMode
	clientFactory func() *gosseract.Client
	logger        *zap.Logger
}

func NewTesseractExtractor(languages []string, pageSegMode int, logger *zap.Logger) *TesseractExtractor {
	if pageSegMode <= 0 {
		pageSegMode = defaultPageSegMode
	}
	return &TesseractExtractor{
		languages:     ocrLanguages(languages),
		pageSegMode:   gosseract.PageSegMode(pageSegMode),
		clientFactory: gosseract.NewClient,
		logger:        logger,
	}
}

func (e *TesseractExtractor) ExtractText(ctx context.Context, img *NormalizedImage) (string, error) {
	data, err := img.PNG()
	if err != nil {
		return "", err
	}

	text, err := e.recognize(ctx, data, e.languages)
	if err != nil && !slices.Equal(e.languages, []string{fallbackLanguage}) {
		e.logger.Warn("OCR failed with configured languages, retrying with English",
			zap.Strings("languages", e.languages),
			zap.Error(err),
		)
		text, err = e.recognize(ctx, data, []string{fallbackLanguage})
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	return CleanText(text), nil
}

func (e *TesseractExtractor) recognize(ctx context.Context, data []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
