//go:build !cgo

package pipeline

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

var _ = Describe("TesseractExtractor without cgo", func() {
	It("reports extraction as unavailable", func() {
		var extractor TextExtractor = NewTesseractExtractor(nil, 0, zap.NewNop())
		_, err := extractor.ExtractText(context.Background(), nil)
		Expect(err).To(MatchError(ErrExtractionUnavailable))
		Expect(err.Error()).To(ContainSubstring("OCR_PROVIDER=cli"))
	})
})
