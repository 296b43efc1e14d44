// Package edition turns a compressed artwork into the metadata payload that
// is stored on chain when an edition is minted.
package edition

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
)

var (
	// ErrNotMintable is returned for a result that has no usable bytes
	ErrNotMintable = errors.New("compression result is not mintable")
	// ErrMissingName is returned when the edition has no name
	ErrMissingName = errors.New("edition name is required")
)

// Meta is the artist supplied part of an edition.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Artist      string `json:"artist,omitempty"`
	// Supply is the number of copies, zero for open editions.
	Supply int `json:"supply,omitempty"`
}

// Attribute is a marketplace trait.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Edition is the token metadata document.
type Edition struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Artist      string      `json:"artist,omitempty"`
	Supply      int         `json:"supply,omitempty"`
	MimeType    string      `json:"mime_type"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	FileSize    int         `json:"file_size"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// FromResult builds an edition from a successful compression.
func FromResult(res compressor.Result, meta Meta) (Edition, error) {
	if !res.Success || len(res.Data) == 0 {
		return Edition{}, fmt.Errorf("%w: %v", ErrNotMintable, res.Err)
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		return Edition{}, ErrMissingName
	}
	uri, err := DataURI(res.Format, res.Data)
	if err != nil {
		return Edition{}, err
	}

	return Edition{
		ID:          uuid.New(),
		Name:        name,
		Description: meta.Description,
		Artist:      meta.Artist,
		Supply:      meta.Supply,
		MimeType:    res.Format.MimeType(),
		Width:       res.Width,
		Height:      res.Height,
		FileSize:    len(res.Data),
		Image:       uri,
		Attributes: []Attribute{
			{TraitType: "format", Value: string(res.Format)},
			{TraitType: "quality", Value: res.Quality},
			{TraitType: "dimensions", Value: fmt.Sprintf("%dx%d", res.Width, res.Height)},
			{TraitType: "target_reached", Value: res.TargetReached},
		},
	}, nil
}

// DataURI returns payload as a base64 data URI of the given format.
func DataURI(f codec.Format, payload []byte) (string, error) {
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", codec.ErrUnsupportedFormat, f)
	}
	b64 := base64.StdEncoding.EncodeToString(payload)
	return "data:" + f.MimeType() + ";base64," + b64, nil
}
