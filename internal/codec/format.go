package codec

import "strings"

// Format is an output encoding the compressor can target.
type Format string

const (
	AVIF Format = "avif"
	WebP Format = "webp"
	JPEG Format = "jpeg"
)

// DefaultFormat is used when a caller asks for a format we do not encode.
const DefaultFormat = WebP

// Formats lists every output format in fixed quality-preference order.
var Formats = []Format{AVIF, WebP, JPEG}

// ParseFormat maps a user supplied name onto a Format. Unknown names fall
// back to DefaultFormat.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avif":
		return AVIF
	case "webp":
		return WebP
	case "jpeg", "jpg":
		return JPEG
	default:
		return DefaultFormat
	}
}

// Valid reports whether f is one of the known output formats.
func (f Format) Valid() bool {
	return f == AVIF || f == WebP || f == JPEG
}

// MimeType returns the IANA media type for f.
func (f Format) MimeType() string {
	switch f {
	case AVIF:
		return "image/avif"
	case WebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Extension returns the file extension without dot.
func (f Format) Extension() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

func (f Format) String() string { return string(f) }
