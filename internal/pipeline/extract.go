package pipeline

import (
	"context"
	"strings"
)

// TextExtractor runs OCR over a normalized receipt image.
type TextExtractor interface {
	ExtractText(ctx context.Context, img *NormalizedImage) (string, error)
}

// StaticExtractor returns fixed text. Used by tests and the seed tool.
type StaticExtractor struct {
	Text string
	Err  error
}

func (s StaticExtractor) ExtractText(ctx context.Context, _ *NormalizedImage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	return CleanText(s.Text), nil
}

// UnavailableExtractor stands in when no OCR engine is configured.
type UnavailableExtractor struct {
	Reason string
}

func (u UnavailableExtractor) ExtractText(context.Context, *NormalizedImage) (string, error) {
	if u.Reason == "" {
		return "", ErrExtractionUnavailable
	}
	return "", &unavailableError{reason: u.Reason}
}

type unavailableError struct {
	reason string
}

func (e *unavailableError) Error() string {
	return ErrExtractionUnavailable.Error() + ": " + e.reason
}

func (e *unavailableError) Unwrap() error {
	return ErrExtractionUnavailable
}

// CleanText normalizes line endings and spacing of raw OCR output while
// keeping the line structure the parser relies on. Invalid UTF-8 is dropped
// since PostgreSQL rejects it on insert.
func CleanText(raw string) string {
	raw = strings.ToValidUTF8(raw, "")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.ReplaceAll(raw, "\t", " ")
	raw = strings.ReplaceAll(raw, "\f", "\n")

	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
