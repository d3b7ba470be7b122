package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// ExtensionFor returns the storage extension for an allowed content type.
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := allowedContentTypes[canonicalContentType(contentType)]
	return ext, ok
}

func canonicalContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

type NormalizerOptions struct {
	MaxBytes     int64
	MaxDimension int
	// MaxPixels bounds width*height before the full decode.
	MaxPixels int
	BlurSigma    float64
	BlockSize    int
	Offset       int
	MaxSkew      float64
	SkewStep     float64
}

func DefaultNormalizerOptions() NormalizerOptions {
	return NormalizerOptions{
		MaxBytes:     10 * 1024 * 1024,
		MaxDimension: 2000,
		MaxPixels:    40_000_000,
		BlurSigma:    0.8,
		BlockSize:    31,
		Offset:       10,
		MaxSkew:      10,
		SkewStep:     0.25,
	}
}

// Normalizer turns a raw photo into a clean black-on-white image for OCR.
type Normalizer struct {
	opts   NormalizerOptions
	logger *zap.Logger
}

func NewNormalizer(opts NormalizerOptions, logger *zap.Logger) *Normalizer {
	defaults := DefaultNormalizerOptions()
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaults.MaxBytes
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = defaults.MaxDimension
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = defaults.MaxPixels
	}
	if opts.BlurSigma <= 0 {
		opts.BlurSigma = defaults.BlurSigma
	}
	if opts.BlockSize < 3 {
		opts.BlockSize = defaults.BlockSize
	}
	if opts.BlockSize%2 == 0 {
		opts.BlockSize++
	}
	if opts.MaxSkew <= 0 {
		opts.MaxSkew = defaults.MaxSkew
	}
	if opts.SkewStep <= 0 {
		opts.SkewStep = defaults.SkewStep
	}
	return &Normalizer{opts: opts, logger: logger}
}

func (n *Normalizer) MaxBytes() int64 {
	return n.opts.MaxBytes
}

// Validate checks the declared type and size without decoding.
func (n *Normalizer) Validate(upload RawUpload) error {
	contentType := canonicalContentType(upload.ContentType)
	if _, ok := allowedContentTypes[contentType]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, upload.ContentType)
	}
	size := int64(len(upload.Data))
	if size == 0 {
		return ErrEmptyImage
	}
	if size > n.opts.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrOversize, size, n.opts.MaxBytes)
	}
	return nil
}

// Normalize decodes the upload and produces a binarized, upright image
// whose longer side never exceeds MaxDimension.
func (n *Normalizer) Normalize(upload RawUpload) (*NormalizedImage, error) {
	if err := n.Validate(upload); err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: decoded format %q", ErrUnsupportedType, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(n.opts.MaxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrOversize, cfg.Width, cfg.Height, n.opts.MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, ErrEmptyImage
	}

	var img image.Image = imaging.Grayscale(src)
	scale := scaleFactor(bounds.Dx(), bounds.Dy(), n.opts.MaxDimension)
	if scale != 1 {
		img = resizeLonger(img, scale, n.opts.MaxDimension)
	}
	img = imaging.Blur(img, n.opts.BlurSigma)

	binary := adaptiveThreshold(toGray(img), n.opts.BlockSize, n.opts.Offset)
	skew := estimateSkew(binary, n.opts.MaxSkew, n.opts.SkewStep)
	if math.Abs(skew) >= n.opts.SkewStep/2 {
		binary = rotateBinary(binary, -skew)
	}

	n.logger.Debug("Receipt image normalized",
		zap.Int("src_width", bounds.Dx()),
		zap.Int("src_height", bounds.Dy()),
		zap.Int("width", binary.Bounds().Dx()),
		zap.Int("height", binary.Bounds().Dy()),
		zap.Float64("scale", scale),
		zap.Float64("skew", skew),
	)

	return &NormalizedImage{Image: binary, Scale: scale, Skew: skew}, nil
}

// scaleFactor doubles small images and shrinks anything above the cap.
func scaleFactor(width, height, maxDimension int) float64 {
	longer := max(width, height)
	switch {
	case longer*2 <= maxDimension:
		return 2
	case longer > maxDimension:
		return float64(maxDimension) / float64(longer)
	default:
		return 1
	}
}

func resizeLonger(img image.Image, scale float64, maxDimension int) image.Image {
	b := img.Bounds()
	if b.Dx() >= b.Dy() {
		width := min(maxDimension, max(1, int(math.Round(float64(b.Dx())*scale))))
		return imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	height := min(maxDimension, max(1, int(math.Round(float64(b.Dy())*scale))))
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// adaptiveThreshold marks a pixel black when it is darker than the mean of its
// block minus offset. Local means survive uneven lighting across the receipt.
func adaptiveThreshold(src *image.Gray, blockSize, offset int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	stride := w + 1
	integral := make([]int64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			rowSum += int64(row[x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	half := blockSize / 2
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h, y+half+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w, x+half+1)
			count := int64((x1 - x0) * (y1 - y0))
			sum := integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
			v := int64(src.Pix[y*src.Stride+x])
			if v*count < sum-int64(offset)*count {
				dst.Pix[y*dst.Stride+x] = 0
			} else {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

const maxSkewSamples = 40000

// estimateSkew returns the counter-clockwise angle, in degrees, of the text
// lines in a binary image. Each candidate angle projects the dark pixels onto
// the line normal; the sharpest histogram wins.
func estimateSkew(bin *image.Gray, maxSkew, step float64) float64 {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()

	dark := 0
	for _, p := range bin.Pix {
		if p < 128 {
			dark++
		}
	}
	if dark < 50 || dark > w*h*9/10 {
		return 0
	}

	every := dark/maxSkewSamples + 1
	points := make([][2]float64, 0, dark/every+1)
	seen := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.Pix[y*bin.Stride+x] >= 128 {
				continue
			}
			if seen%every == 0 {
				points = append(points, [2]float64{float64(x), float64(y)})
			}
			seen++
		}
	}

	diag := int(math.Hypot(float64(w), float64(h))) + 2
	bins := make([]int64, 2*diag+1)
	best, bestScore := 0.0, int64(-1)
	for _, angle := range candidateAngles(maxSkew, step) {
		sin, cos := math.Sincos(angle * math.Pi / 180)
		clear(bins)
		for _, p := range points {
			r := int(math.Round(p[1]*cos+p[0]*sin)) + diag
			bins[r]++
		}
		var score int64
		for _, c := range bins {
			score += c * c
		}
		if score > bestScore {
			best, bestScore = angle, score
		}
	}
	return best
}

// candidateAngles lists angles by increasing magnitude so ties favour no rotation.
func candidateAngles(maxSkew, step float64) []float64 {
	steps := int(math.Floor(maxSkew/step + 1e-9))
	angles := make([]float64, 0, 2*steps+1)
	angles = append(angles, 0)
	for i := 1; i <= steps; i++ {
		a := float64(i) * step
		angles = append(angles, a, -a)
	}
	return angles
}

// rotateBinary rotates counter-clockwise by angle and crops back to the
// original size so the dimension cap still holds.
func rotateBinary(bin *image.Gray, angle float64) *image.Gray {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	rotated := imaging.Rotate(bin, angle, color.White)
	cropped := toGray(imaging.CropCenter(rotated, w, h))
	for i, p := range cropped.Pix {
		if p < 128 {
			cropped.Pix[i] = 0
		} else {
			cropped.Pix[i] = 255
		}
	}
	return cropped
}
