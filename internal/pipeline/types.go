package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"ai-finance-manager/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RawUpload is an uploaded receipt for the duration of one request.
type RawUpload struct {
	PrincipalID uuid.UUID
	ContentType string
	Size        int64
	Data        []byte
}

// NormalizedImage is the binarized, deskewed single-channel receipt handed to OCR.
type NormalizedImage struct {
	Image *image.Gray
	Scale float64
	// Skew is the counter-clockwise rotation in degrees found in the input and removed.
	Skew float64
}

func (n *NormalizedImage) Width() int {
	return n.Image.Bounds().Dx()
}

func (n *NormalizedImage) Height() int {
	return n.Image.Bounds().Dy()
}

// PNG encodes the image losslessly for OCR engines and storage.
func (n *NormalizedImage) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, n.Image); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// LineItem is a candidate expense recovered from one receipt line.
type LineItem struct {
	Quantity    *int
	Description string
	Amount      decimal.Decimal
	Currency    string
	Category    *models.Category
}
