// Package compressor produces the best-quality encoding of an artwork image
// that fits a soft size target and, when set, an absolute byte ceiling.
package compressor

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/pkg/quality"
)

// Codec is the raster primitive the search runs against.
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, f codec.Format, quality int) ([]byte, error)
	Formats() []codec.Format
}

// Compressor runs size-targeted searches. It holds no per-call state and is
// safe for concurrent use.
type Compressor struct {
	codec  Codec
	logger *zap.Logger
}

// New creates a Compressor over c. A nil logger disables logging.
func New(c Codec, logger *zap.Logger) *Compressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compressor{codec: c, logger: logger.Named("compressor")}
}

// Compress decodes src and searches formats, qualities and dimensions for the
// encoding closest to opts.TargetSizeKB from below. Every expected failure is
// reported through the returned Result.
func (c *Compressor) Compress(ctx context.Context, src []byte, opts Options) Result {
	res := Result{OriginalSizeKB: float64(len(src)) / quality.KB}

	if opts.TargetSizeKB <= 0 {
		res.Err = fmt.Errorf("%w: target size must be positive, got %v", ErrInvalidOptions, opts.TargetSizeKB)
		return res
	}
	if opts.HardCeilingBytes < 0 {
		res.Err = fmt.Errorf("%w: hard ceiling must not be negative", ErrInvalidOptions)
		return res
	}

	img, err := c.codec.Decode(src)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrDecode, err)
		return res
	}

	b := img.Bounds()
	t := opts.tunables()
	s := &search{
		ctx:    ctx,
		codec:  c.codec,
		logger: c.logger,
		src:    img,
		opts:   opts,
		t:      t,
		target: searchTarget(opts),
		scaled: make(map[image.Point]image.Image),
	}
	s.workW, s.workH = codec.Fit(b.Dx(), b.Dy(), opts.MaxDimension)
	s.formats = priority(opts.PreferredFormat, c.codec.Formats(), t.FormatRank)

	res.OriginalWidth, res.OriginalHeight = b.Dx(), b.Dy()
	return s.run(res)
}

// searchTarget is the size each trial encoding is measured against: the soft target,
// tightened to the hard ceiling when that is lower.
func searchTarget(opts Options) float64 {
	if opts.HardCeilingBytes > 0 {
		return math.Min(opts.TargetSizeKB, float64(opts.HardCeilingBytes)/quality.KB)
	}
	return opts.TargetSizeKB
}

// search is the state of one Compress call.
type search struct {
	ctx    context.Context
	codec  Codec
	logger *zap.Logger
	src    image.Image
	opts   Options
	t      Tunables
	target float64

	formats      []codec.Format
	workW, workH int
	scaled       map[image.Point]image.Image

	attempts  int
	encodeErr error
	best      *Candidate
}

func (s *search) run(res Result) Result {
	if len(s.formats) == 0 {
		res.Err = fmt.Errorf("%w: no encoders available", ErrEncode)
		return res
	}

	s.logger.Debug("search started",
		zap.Int("width", s.workW),
		zap.Int("height", s.workH),
		zap.Float64("target_kb", s.target),
		zap.Stringers("formats", s.formats),
	)

	phases := []func() error{
		s.initial,
		s.downscale,
		s.refine,
		s.emergency,
	}
	for _, phase := range phases {
		if err := phase(); err != nil {
			res.Attempts = s.attempts
			res.Err = err
			return res
		}
	}

	return s.result(res)
}

// initial searches every format at the working dimensions. A good AVIF fit
// ends the format loop early.
func (s *search) initial() error {
	_, err := s.searchAll(s.workW, s.workH, func(c *Candidate) bool {
		return c.Format == codec.AVIF && s.closeness(c) >= s.t.GoodCloseness
	})
	return err
}

// downscale walks a shrinking ladder of dimensions when nothing fit at the
// working size.
func (s *search) downscale() error {
	if s.feasible(s.best) {
		return nil
	}

	scale := 1.0
	for round := 1; round <= s.t.DownscaleRounds; round++ {
		step := s.t.DownscaleStep
		if round > s.t.AggressiveAfter {
			step = s.t.AggressiveDownscaleStep
		}
		scale *= 1 - step

		w, h := s.dims(scale)
		if w < s.t.MinSide || h < s.t.MinSide {
			break
		}

		stopped, err := s.searchAll(w, h, func(c *Candidate) bool {
			return (c.Format == codec.AVIF || c.Format == codec.WebP) && s.closeness(c) >= s.t.GoodCloseness
		})
		if err != nil {
			return err
		}

		s.logger.Debug("downscale round",
			zap.Int("round", round),
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Bool("feasible", s.feasible(s.best)),
		)
		if stopped {
			break
		}
	}
	return nil
}

// refine grows a reduced-size winner back toward the working dimensions
// while it keeps fitting the target.
func (s *search) refine() error {
	b := s.best
	if !s.feasible(b) || s.closeness(b) >= s.t.GoodCloseness {
		return nil
	}

	w, h := b.Width, b.Height
	scale := s.scaleOf(w, h)
	step := s.t.UpscaleStep
	for pass := 0; pass < s.t.MaxUpscalePasses; pass++ {
		next := scale * (1 + step)
		if next > 1 {
			next = 1
		}
		nw, nh := s.dims(next)
		if nw <= w && nh <= h {
			break
		}

		fit, _, err := s.searchFormat(b.Format, nw, nh)
		if err != nil {
			if s.ctx.Err() != nil {
				return err
			}
			s.recordEncodeErr(b.Format, nw, nh, err)
			break
		}
		if fit == nil {
			break
		}
		s.consider(fit)

		w, h, scale = nw, nh, next
		if s.closeness(s.best) >= s.t.GoodCloseness {
			break
		}
		step *= s.t.UpscaleDecay
	}
	return nil
}

// emergency makes one last reduced attempt when the winner breaks the hard
// ceiling.
func (s *search) emergency() error {
	ceiling := s.opts.HardCeilingBytes
	b := s.best
	if ceiling <= 0 || b == nil || len(b.Data) <= ceiling {
		return nil
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}

	w, h := codec.Scale(b.Width, b.Height, s.t.EmergencyScale)
	s.attempts++
	data, err := s.codec.Encode(s.image(w, h), b.Format, s.t.EmergencyQuality)
	if err != nil {
		s.recordEncodeErr(b.Format, w, h, err)
		return nil
	}

	s.logger.Debug("emergency reduction",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("bytes", len(data)),
		zap.Int("ceiling", ceiling),
	)
	if len(data) <= ceiling {
		s.best = &Candidate{Format: b.Format, Quality: s.t.EmergencyQuality, Width: w, Height: h, Data: data}
	}
	return nil
}

func (s *search) result(res Result) Result {
	res.Attempts = s.attempts

	b := s.best
	if b == nil {
		if s.encodeErr != nil {
			res.Err = fmt.Errorf("%w: %v", ErrEncode, s.encodeErr)
		} else {
			res.Err = fmt.Errorf("%w: no encoding produced", ErrEncode)
		}
		return res
	}

	res.Format = b.Format
	res.Quality = b.Quality
	res.Width = b.Width
	res.Height = b.Height
	res.Data = b.Data
	res.CompressedSizeKB = b.SizeKB()

	ceiling := s.opts.HardCeilingBytes
	switch {
	case ceiling > 0 && len(b.Data) > ceiling:
		res.Err = fmt.Errorf("%w: best encoding is %d bytes, limit %d", ErrHardLimitExceeded, len(b.Data), ceiling)
	case !s.feasible(b):
		res.Success = true
		res.Err = fmt.Errorf("%w: smallest encoding %.2fKB exceeds target %.2fKB", ErrTargetUnreachable, res.CompressedSizeKB, s.target)
	default:
		res.Success = true
		res.TargetReached = true
	}
	return res
}

// searchAll runs the quality search for each format at w x h. It reports
// whether stop accepted a fitting candidate.
func (s *search) searchAll(w, h int, stop func(*Candidate) bool) (bool, error) {
	for _, f := range s.formats {
		fit, smallest, err := s.searchFormat(f, w, h)
		if err != nil {
			if s.ctx.Err() != nil {
				return false, err
			}
			s.recordEncodeErr(f, w, h, err)
		}
		if fit != nil {
			s.consider(fit)
		}
		if smallest != nil {
			s.consider(smallest)
		}
		if fit != nil && stop(fit) {
			return true, nil
		}
	}
	return false, nil
}

func (s *search) searchFormat(f codec.Format, w, h int) (fit, smallest *Candidate, err error) {
	img := s.image(w, h)
	out, err := quality.Search(s.ctx, func(q int) ([]byte, error) {
		return s.codec.Encode(img, f, q)
	}, s.target, s.t.FeasibleCloseness)
	s.attempts += out.Probes

	candidate := func(p *quality.Probe) *Candidate {
		if p == nil {
			return nil
		}
		return &Candidate{Format: f, Quality: p.Quality, Width: w, Height: h, Data: p.Data}
	}
	return candidate(out.Fit), candidate(out.Smallest), err
}

func (s *search) recordEncodeErr(f codec.Format, w, h int, err error) {
	s.encodeErr = fmt.Errorf("%s at %dx%d: %w", f, w, h, err)
	s.logger.Debug("encode failed", zap.Stringer("format", f), zap.Int("width", w), zap.Int("height", h), zap.Error(err))
}

// image returns the source resized to w x h, cached for the call.
func (s *search) image(w, h int) image.Image {
	key := image.Pt(w, h)
	if img, ok := s.scaled[key]; ok {
		return img
	}
	img := codec.Resize(s.src, w, h)
	s.scaled[key] = img
	return img
}

// dims returns the working dimensions scaled by factor.
func (s *search) dims(factor float64) (int, int) {
	if factor >= 1 {
		return s.workW, s.workH
	}
	return codec.Scale(s.workW, s.workH, factor)
}

// scaleOf returns w x h relative to the working dimensions, measured on the
// longer side.
func (s *search) scaleOf(w, h int) float64 {
	if s.workW >= s.workH {
		return float64(w) / float64(s.workW)
	}
	return float64(h) / float64(s.workH)
}

func (s *search) feasible(c *Candidate) bool {
	return c != nil && c.SizeKB() <= s.target
}

func (s *search) closeness(c *Candidate) float64 {
	if !s.feasible(c) {
		return 0
	}
	return quality.Closeness(c.SizeKB(), s.target)
}

func (s *search) score(c *Candidate) float64 {
	return s.t.SizeWeight*s.closeness(c) + s.t.FormatWeight*float64(s.t.FormatRank[c.Format])/10
}

func (s *search) underCeiling(c *Candidate) bool {
	return s.opts.HardCeilingBytes <= 0 || len(c.Data) <= s.opts.HardCeilingBytes
}

// better reports whether a should replace b. Any candidate that fits beats
// any that does not. Among fitting candidates one under the hard ceiling wins,
// then the higher score; the rest compare by size.
func (s *search) better(a, b *Candidate) bool {
	if b == nil {
		return true
	}
	af, bf := s.feasible(a), s.feasible(b)
	switch {
	case af && !bf:
		return true
	case !af && bf:
		return false
	case af && bf:
		if ac, bc := s.underCeiling(a), s.underCeiling(b); ac != bc {
			return ac
		}
		return s.score(a) > s.score(b)
	default:
		return len(a.Data) < len(b.Data)
	}
}

func (s *search) consider(c *Candidate) {
	if s.better(c, s.best) {
		s.best = c
	}
}
