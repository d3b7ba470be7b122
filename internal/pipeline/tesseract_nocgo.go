//go:build !cgo

package pipeline

import "go.uber.org/zap"

// TesseractExtractor needs libtesseract through cgo. In builds without cgo it
// reports extraction as unavailable; OCR_PROVIDER=cli still works.
type TesseractExtractor struct {
	UnavailableExtractor
}

func NewTesseractExtractor(languages []string, pageSegMode int, logger *zap.Logger) *TesseractExtractor {
	logger.Warn("Built without cgo, in-process OCR is unavailable",
		zap.Strings("languages", ocrLanguages(languages)),
		zap.Int("psm", pageSegMode),
	)
	return &TesseractExtractor{
		UnavailableExtractor: UnavailableExtractor{Reason: "built without cgo, use OCR_PROVIDER=cli"},
	}
}
