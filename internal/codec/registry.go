package codec

import (
	"fmt"
	"image"
	"sync"
)

// Registry manages the encoders available to the compressor and provides
// decoding of inbound artwork.
type Registry struct {
	mu       sync.RWMutex
	encoders map[Format]Encoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{encoders: make(map[Format]Encoder)}
}

// NewDefaultRegistry returns a registry with JPEG, WebP and AVIF encoders.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(JPEGEncoder{})
	r.Register(WebPEncoder{})
	r.Register(AVIFEncoder{Speed: DefaultAVIFSpeed})
	return r
}

// Register adds or replaces the encoder for its format
func (r *Registry) Register(e Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[e.Format()] = e
}

// Unregister removes the encoder for f.
func (r *Registry) Unregister(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.encoders, f)
}

// Encoder retrieves the encoder for f
func (r *Registry) Encoder(f Format) (Encoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.encoders[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEncoderNotFound, f)
	}
	return e, nil
}

// Formats returns the registered formats in quality-preference order.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Format, 0, len(r.encoders))
	for _, f := range Formats {
		if _, ok := r.encoders[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Encode encodes img as f at quality.
func (r *Registry) Encode(img image.Image, f Format, quality int) ([]byte, error) {
	e, err := r.Encoder(f)
	if err != nil {
		return nil, err
	}
	return e.Encode(img, quality)
}

// Decode decodes any supported input container.
func (r *Registry) Decode(data []byte) (image.Image, error) {
	img, _, err := Decode(data)
	return img, err
}
