package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/adrium/goheif"
	"github.com/gen2brain/avif"
	"golang.org/x/image/webp"
)

// FileType is a sniffed input container type.
type FileType uint

const (
	UNKNOWN FileType = iota
	JPEGFile
	PNGFile
	GIFFile
	WEBPFile
	HEIFFile
	AVIFFile
)

func (t FileType) String() string {
	switch t {
	case JPEGFile:
		return "jpeg"
	case PNGFile:
		return "png"
	case GIFFile:
		return "gif"
	case WEBPFile:
		return "webp"
	case HEIFFile:
		return "heif"
	case AVIFFile:
		return "avif"
	default:
		return "unknown"
	}
}

// Decode sniffs the container type from magic bytes and decodes the first
// frame. The decoded image is validated against the dimension limits.
func Decode(data []byte) (image.Image, FileType, error) {
	if err := ValidateFile(data); err != nil {
		return nil, UNKNOWN, err
	}

	ft := GetFileType(data)

	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(data)
	switch ft {
	case JPEGFile:
		img, err = jpeg.Decode(r)
	case PNGFile:
		img, err = png.Decode(r)
	case GIFFile:
		img, err = gif.Decode(r)
	case WEBPFile:
		img, err = webp.Decode(r)
	case HEIFFile:
		img, err = goheif.Decode(r)
	case AVIFFile:
		img, err = avif.Decode(r)
	default:
		return nil, UNKNOWN, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, ft, fmt.Errorf("%w: %s: %v", ErrDecode, ft, err)
	}

	if err := ValidateImage(img); err != nil {
		return nil, ft, err
	}

	return img, ft, nil
}

// GetFileType inspects the leading bytes of buf.
func GetFileType(buf []byte) FileType {
	switch {
	case isJpeg(buf):
		return JPEGFile
	case isPng(buf):
		return PNGFile
	case isGif(buf):
		return GIFFile
	case isWebp(buf):
		return WEBPFile
	case isAvif(buf):
		return AVIFFile
	case isHeif(buf):
		return HEIFFile
	default:
		return UNKNOWN
	}
}

func isJpeg(buf []byte) bool {
	return len(buf) > 2 &&
		buf[0] == 0xFF &&
		buf[1] == 0xD8 &&
		buf[2] == 0xFF
}

func isPng(buf []byte) bool {
	return len(buf) > 3 &&
		buf[0] == 0x89 && buf[1] == 0x50 &&
		buf[2] == 0x4E && buf[3] == 0x47
}

func isGif(buf []byte) bool {
	return len(buf) > 2 &&
		buf[0] == 0x47 && buf[1] == 0x49 && buf[2] == 0x46
}

func isWebp(buf []byte) bool {
	return len(buf) > 11 &&
		string(buf[0:4]) == "RIFF" &&
		string(buf[8:12]) == "WEBP"
}

// ISOBMFF: [4 bytes size] "ftyp" [major brand]
func ftypBrand(buf []byte) string {
	if len(buf) < 12 || string(buf[4:8]) != "ftyp" {
		return ""
	}
	return string(buf[8:12])
}

func isAvif(buf []byte) bool {
	brand := ftypBrand(buf)
	return brand == "avif" || brand == "avis"
}

func isHeif(buf []byte) bool {
	switch ftypBrand(buf) {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}
