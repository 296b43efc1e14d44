package codec

import (
	"fmt"
	"image"
)

// Validation limits
const (
	MaxFileSize       = 20 * 1024 * 1024 // 20MB max upload
	MaxImageWidth     = 20000
	MaxImageHeight    = 20000
	MaxImagePixels    = 250_000_000 // decompression bomb guard
	MinImageDimension = 1
)

// ValidateFile checks the raw input size before any decoding work.
func ValidateFile(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrUnsupportedFormat)
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), MaxFileSize)
	}
	return nil
}

// ValidateImage checks decoded image dimensions are within acceptable limits
func ValidateImage(img image.Image) error {
	if img == nil {
		return ErrInvalidImageDimensions
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width < MinImageDimension || height < MinImageDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImageDimensions, width, height)
	}
	if width > MaxImageWidth || height > MaxImageHeight {
		return fmt.Errorf("%w: %dx%d (max %dx%d)", ErrImageTooLarge, width, height, MaxImageWidth, MaxImageHeight)
	}
	if int64(width)*int64(height) > MaxImagePixels {
		return fmt.Errorf("%w: %d pixels", ErrImageTooLarge, int64(width)*int64(height))
	}

	return nil
}
