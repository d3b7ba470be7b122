package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *zap.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Error("exec failed",
			zap.String("cmd", name),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("stderr", truncate(errb.String(), 8<<10)),
			zap.Error(err),
		)
	} else {
		r.logger.Debug("exec ok",
			zap.String("cmd", name),
			zap.String("args", strings.Join(args, " ")),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("stdout_bytes", out.Len()),
		)
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}

// TesseractCLIExtractor shells out to the tesseract binary. It needs no cgo,
// which suits slim containers.
type TesseractCLIExtractor struct {
	binary      string
	languages   []string
	pageSegMode int
	runner      Runner
	lookPath    func(string) (string, error)
	logger      *zap.Logger
}

func NewTesseractCLIExtractor(binary string, languages []string, pageSegMode int, logger *zap.Logger) *TesseractCLIExtractor {
	return NewTesseractCLIExtractorWithRunner(binary, languages, pageSegMode, execRunner{logger: logger}, exec.LookPath, logger)
}

func NewTesseractCLIExtractorWithRunner(binary string, languages []string, pageSegMode int, runner Runner, lookPath func(string) (string, error), logger *zap.Logger) *TesseractCLIExtractor {
	if binary == "" {
		binary = "tesseract"
	}
	if pageSegMode <= 0 {
		pageSegMode = defaultPageSegMode
	}
	return &TesseractCLIExtractor{
		binary:      binary,
		languages:   ocrLanguages(languages),
		pageSegMode: pageSegMode,
		runner:      runner,
		lookPath:    lookPath,
		logger:      logger,
	}
}

func (e *TesseractCLIExtractor) ExtractText(ctx context.Context, img *NormalizedImage) (string, error) {
	bin, err := e.lookPath(e.binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found: %v", ErrExtractionUnavailable, e.binary, err)
	}

	data, err := img.PNG()
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	text, err := e.run(ctx, bin, tmp.Name(), strings.Join(e.languages, "+"))
	if err != nil && strings.Join(e.languages, "+") != fallbackLanguage {
		e.logger.Warn("tesseract failed with configured languages, retrying with English",
			zap.Strings("languages", e.languages),
			zap.Error(err),
		)
		text, err = e.run(ctx, bin, tmp.Name(), fallbackLanguage)
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrExtractionUnavailable, err)
	}
	return CleanText(text), nil
}

func (e *TesseractCLIExtractor) run(ctx context.Context, bin, path, languages string) (string, error) {
	stdout, stderr, err := e.runner.Run(ctx, bin, path, "stdout",
		"-l", languages,
		"--psm", strconv.Itoa(e.pageSegMode),
	)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(stderr)), 512))
	}
	return string(stdout), nil
}
