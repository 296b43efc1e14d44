package codec

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	webp "github.com/chai2010/webp"
	"github.com/gen2brain/avif"
)

// Encoder turns a raster into bytes of one format at an integer quality 1-100.
type Encoder interface {
	Format() Format
	Encode(img image.Image, quality int) ([]byte, error)
}

func checkQuality(q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, q)
	}
	return nil
}

// JPEGEncoder encodes with the standard library baseline encoder.
type JPEGEncoder struct{}

func (JPEGEncoder) Format() Format { return JPEG }

func (JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	buf := getBuffer(probeSizeHint(img, quality))
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		putBuffer(buf)
		return nil, err
	}
	return detach(buf), nil
}

// WebPEncoder encodes lossy WebP through libwebp.
type WebPEncoder struct{}

func (WebPEncoder) Format() Format { return WebP }

func (WebPEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	buf := getBuffer(probeSizeHint(img, quality))
	if err := webp.Encode(buf, toRGBA(img), &webp.Options{Quality: float32(quality)}); err != nil {
		putBuffer(buf)
		return nil, err
	}
	return detach(buf), nil
}

// AVIFEncoder encodes AVIF via libaom compiled to WASM. Speed trades encode
// time for density; 0 is slowest, 10 fastest.
type AVIFEncoder struct {
	Speed int
}

// DefaultAVIFSpeed keeps a full search ladder within a few seconds.
const DefaultAVIFSpeed = 8

func (AVIFEncoder) Format() Format { return AVIF }

func (e AVIFEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	if err := checkQuality(quality); err != nil {
		return nil, err
	}
	buf := getBuffer(probeSizeHint(img, quality))
	err := avif.Encode(buf, img, avif.Options{
		Quality:           quality,
		QualityAlpha:      quality,
		Speed:             e.Speed,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		putBuffer(buf)
		return nil, err
	}
	return detach(buf), nil
}

// toRGBA converts img to *image.RGBA when it is not one already.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
