package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode covers every upload that is not a decodable image of an allowed type.
	ErrDecode          = errors.New("invalid image")
	ErrUnsupportedType = fmt.Errorf("%w: content type not allowed", ErrDecode)
	ErrEmptyImage      = fmt.Errorf("%w: empty file", ErrDecode)
	ErrOversize        = errors.New("image too large")

	// ErrExtractionUnavailable means the OCR engine cannot be invoked at all.
	ErrExtractionUnavailable = errors.New("text extraction unavailable")
)
