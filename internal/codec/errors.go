package codec

import "errors"

var (
	// ErrUnsupportedFormat is returned when input bytes are not a known raster format
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned when a recognised format fails to decode
	ErrDecode = errors.New("image decode failed")
	// ErrEncoderNotFound is returned when no encoder is registered for a format
	ErrEncoderNotFound = errors.New("encoder not registered")
	// ErrInvalidQuality is returned when quality is outside 1-100
	ErrInvalidQuality = errors.New("invalid quality (must be 1-100)")
	// ErrFileTooLarge is returned when the input exceeds MaxFileSize
	ErrFileTooLarge = errors.New("file size exceeds limit")
	// ErrInvalidImageDimensions is returned when image dimensions are invalid
	ErrInvalidImageDimensions = errors.New("invalid image dimensions")
	// ErrImageTooLarge is returned when image dimensions exceed limits
	ErrImageTooLarge = errors.New("image dimensions exceed maximum allowed")
)
