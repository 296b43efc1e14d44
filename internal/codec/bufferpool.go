package codec

import (
	"bytes"
	"image"
	"sync"

	"github.com/harliandi/artpress/pkg/metrics"
)

// Size classes for probe buffers. Most probes land near the compression
// target (tens of KB), full-quality probes of large artwork can reach MBs.
const (
	smallBuffer  = 64 * 1024
	mediumBuffer = 512 * 1024
	largeBuffer  = 5 * 1024 * 1024
)

type bufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

func newBufferClass(size int, label string) sync.Pool {
	return sync.Pool{
		New: func() interface{} {
			metrics.RecordPoolMiss(label)
			return bytes.NewBuffer(make([]byte, 0, size))
		},
	}
}

var probeBuffers = &bufferPool{
	small:  newBufferClass(smallBuffer, "small"),
	medium: newBufferClass(mediumBuffer, "medium"),
	large:  newBufferClass(largeBuffer, "large"),
}

// getBuffer returns an empty buffer whose capacity fits sizeHint.
func getBuffer(sizeHint int) *bytes.Buffer {
	var b *bytes.Buffer
	switch {
	case sizeHint <= smallBuffer:
		b = probeBuffers.small.Get().(*bytes.Buffer)
		metrics.RecordPoolHit("small")
	case sizeHint <= mediumBuffer:
		b = probeBuffers.medium.Get().(*bytes.Buffer)
		metrics.RecordPoolHit("medium")
	default:
		b = probeBuffers.large.Get().(*bytes.Buffer)
		metrics.RecordPoolHit("large")
	}
	b.Reset()
	return b
}

// putBuffer returns b to the class matching its capacity. Buffers that grew
// past the large class are left to the GC.
func putBuffer(b *bytes.Buffer) {
	b.Reset()
	switch c := b.Cap(); {
	case c <= smallBuffer:
		probeBuffers.small.Put(b)
	case c <= mediumBuffer:
		probeBuffers.medium.Put(b)
	case c <= largeBuffer:
		probeBuffers.large.Put(b)
	}
}

// detach copies the encoded bytes out of a pooled buffer and releases it.
func detach(b *bytes.Buffer) []byte {
	out := make([]byte, b.Len())
	copy(out, b.Bytes())
	putBuffer(b)
	return out
}

// probeSizeHint guesses an encoded size so the right buffer class is picked.
// Lossy encoders rarely exceed one byte per pixel even at full quality.
func probeSizeHint(img image.Image, quality int) int {
	b := img.Bounds()
	return b.Dx() * b.Dy() * quality / 100
}
