package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

func blankImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// receiptLike draws horizontal bars that stand in for lines of text.
func receiptLike(w, h int) *image.Gray {
	img := blankImage(w, h)
	for y := h / 5; y+6 < h*4/5; y += 20 {
		draw.Draw(img, image.Rect(w/8, y, w*7/8, y+6), image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})).To(Succeed())
	return buf.Bytes()
}

// pngHeader returns a PNG signature and IHDR chunk only: enough for
// image.DecodeConfig, with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	Expect(binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))).To(Succeed())
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	Expect(binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))).To(Succeed())
	return buf.Bytes()
}

func countDark(img *image.Gray) int {
	n := 0
	for _, p := range img.Pix {
		if p < 128 {
			n++
		}
	}
	return n
}

var _ = Describe("Normalizer", func() {
	var normalizer *Normalizer

	BeforeEach(func() {
		normalizer = NewNormalizer(NormalizerOptions{MaxDimension: 500}, zap.NewNop())
	})

	Describe("rejecting bad uploads", func() {
		It("rejects content types outside the allow-list", func() {
			_, err := normalizer.Normalize(RawUpload{ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
			Expect(err).To(MatchError(ErrUnsupportedType))
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})

		It("rejects an empty file", func() {
			_, err := normalizer.Normalize(RawUpload{ContentType: "image/png"})
			Expect(err).To(MatchError(ErrEmptyImage))
			Expect(errors.Is(err, ErrDecode)).To(BeTrue())
		})

		It("rejects bytes that are not an image", func() {
			_, err := normalizer.Normalize(RawUpload{ContentType: "image/png", Data: []byte("definitely not a png")})
			Expect(err).To(MatchError(ErrDecode))
		})

		It("rejects uploads above the size cap", func() {
			small := NewNormalizer(NormalizerOptions{MaxBytes: 16}, zap.NewNop())
			_, err := small.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(receiptLike(100, 100))})
			Expect(err).To(MatchError(ErrOversize))
			Expect(errors.Is(err, ErrDecode)).To(BeFalse())
		})

		It("rejects huge dimensions before decoding the pixels", func() {
			data := pngHeader(12000, 12000)
			Expect(len(data)).To(BeNumerically("<", 100))

			_, err := normalizer.Normalize(RawUpload{ContentType: "image/png", Data: data})
			Expect(err).To(MatchError(ErrOversize))
			Expect(err.Error()).To(ContainSubstring("12000x12000"))
		})

		It("honours a custom pixel cap", func() {
			tight := NewNormalizer(NormalizerOptions{MaxDimension: 500, MaxPixels: 100 * 100}, zap.NewNop())
			_, err := tight.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(receiptLike(120, 100))})
			Expect(err).To(MatchError(ErrOversize))

			_, err = tight.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(receiptLike(100, 100))})
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts content types with parameters", func() {
			Expect(normalizer.Validate(RawUpload{ContentType: "image/JPEG; q=1", Data: []byte{1}})).To(Succeed())
		})
	})

	DescribeTable("bounding the output dimensions",
		func(w, h, wantW, wantH int) {
			out, err := normalizer.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(receiptLike(w, h))})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Width()).To(Equal(wantW))
			Expect(out.Height()).To(Equal(wantH))
			Expect(max(out.Width(), out.Height())).To(BeNumerically("<=", 500))
		},
		Entry("wide image is shrunk", 1200, 300, 500, 125),
		Entry("tall image is shrunk", 300, 1200, 125, 500),
		Entry("small image is doubled", 100, 80, 200, 160),
		Entry("image at the cap is kept", 500, 500, 500, 500),
		Entry("image too large to double is kept", 260, 100, 260, 100),
	)

	It("produces a strictly black and white image", func() {
		out, err := normalizer.Normalize(RawUpload{ContentType: "image/jpeg", Data: encodeJPEG(receiptLike(240, 200))})
		Expect(err).NotTo(HaveOccurred())
		for _, p := range out.Image.Pix {
			Expect(p == 0 || p == 255).To(BeTrue())
		}
		Expect(countDark(out.Image)).To(BeNumerically(">", 0))
	})

	It("leaves a blank page unrotated", func() {
		out, err := normalizer.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(blankImage(200, 200))})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Skew).To(BeZero())
	})

	Describe("deskewing", func() {
		var (
			out *NormalizedImage
			err error
		)

		BeforeEach(func() {
			n := NewNormalizer(NormalizerOptions{MaxDimension: 1000}, zap.NewNop())
			straight := receiptLike(400, 300)
			tilted := imaging.CropCenter(imaging.Rotate(straight, 4, color.White), 400, 300)
			out, err = n.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(tilted)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("detects the rotation of the text lines", func() {
			Expect(out.Skew).To(BeNumerically("~", 4, 0.5))
		})

		It("returns upright text lines", func() {
			Expect(estimateSkew(out.Image, 10, 0.25)).To(BeNumerically("~", 0, 0.5))
		})

		It("keeps the scaled dimensions", func() {
			Expect(out.Scale).To(Equal(2.0))
			Expect(out.Width()).To(Equal(800))
			Expect(out.Height()).To(Equal(600))
		})
	})

	It("encodes the result as PNG", func() {
		out, err := normalizer.Normalize(RawUpload{ContentType: "image/png", Data: encodePNG(receiptLike(120, 90))})
		Expect(err).NotTo(HaveOccurred())
		data, err := out.PNG()
		Expect(err).NotTo(HaveOccurred())
		decoded, format, err := image.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
		Expect(decoded.Bounds().Dx()).To(Equal(out.Width()))
	})
})

var _ = Describe("ExtensionFor", func() {
	It("maps allowed types to file extensions", func() {
		ext, ok := ExtensionFor("image/jpeg")
		Expect(ok).To(BeTrue())
		Expect(ext).To(Equal(".jpg"))

		ext, ok = ExtensionFor("image/png")
		Expect(ok).To(BeTrue())
		Expect(ext).To(Equal(".png"))

		_, ok = ExtensionFor("image/heic")
		Expect(ok).To(BeFalse())
	})
})
