package compressor

import (
	"github.com/harliandi/artpress/internal/codec"
)

// DefaultHardCeilingBytes matches the per-edition on-chain storage limit.
const DefaultHardCeilingBytes = 45000

// Options describe one compression request.
type Options struct {
	// PreferredFormat is tried first; invalid values fall back to codec.DefaultFormat.
	PreferredFormat codec.Format
	// MaxDimension bounds the longer side of the output. Zero keeps the source size.
	MaxDimension int
	// TargetSizeKB is the soft ceiling the search approaches from below.
	TargetSizeKB float64
	// HardCeilingBytes is an absolute limit the result must respect to count
	// as usable. Zero disables it.
	HardCeilingBytes int
	// Tunables overrides the search constants; the zero value means DefaultTunables.
	Tunables *Tunables
}

// Tunables are the empirically chosen search constants.
type Tunables struct {
	// FeasibleCloseness ends a quality search once a fitting probe reaches it.
	FeasibleCloseness float64
	// GoodCloseness is "close enough" for early exits and refinement.
	GoodCloseness float64

	SizeWeight   float64
	FormatWeight float64
	// FormatRank is the quality preference per format, on a 0-10 scale.
	FormatRank map[codec.Format]int

	MaxUpscalePasses int
	UpscaleStep      float64
	UpscaleDecay     float64

	DownscaleRounds         int
	DownscaleStep           float64
	AggressiveDownscaleStep float64
	// AggressiveAfter is the number of rounds run at DownscaleStep.
	AggressiveAfter int
	MinSide         int

	EmergencyScale   float64
	EmergencyQuality int
}

// DefaultTunables returns the stock search constants.
func DefaultTunables() Tunables {
	return Tunables{
		FeasibleCloseness: 0.998,
		GoodCloseness:     0.97,
		SizeWeight:        0.7,
		FormatWeight:      0.3,
		FormatRank: map[codec.Format]int{
			codec.AVIF: 10,
			codec.WebP: 7,
			codec.JPEG: 4,
		},
		MaxUpscalePasses:        5,
		UpscaleStep:             0.05,
		UpscaleDecay:            0.8,
		DownscaleRounds:         8,
		DownscaleStep:           0.10,
		AggressiveDownscaleStep: 0.20,
		AggressiveAfter:         3,
		MinSide:                 50,
		EmergencyScale:          0.90,
		EmergencyQuality:        70,
	}
}

func (o Options) tunables() Tunables {
	if o.Tunables == nil {
		return DefaultTunables()
	}
	t := *o.Tunables
	if t.FormatRank == nil {
		t.FormatRank = DefaultTunables().FormatRank
	}
	return t
}

// priority orders formats with the preferred one first and the rest by rank.
func priority(preferred codec.Format, available []codec.Format, rank map[codec.Format]int) []codec.Format {
	if !preferred.Valid() {
		preferred = codec.DefaultFormat
	}

	rest := make([]codec.Format, 0, len(available))
	var out []codec.Format
	for _, f := range available {
		if f == preferred {
			out = append(out, f)
			continue
		}
		rest = append(rest, f)
	}
	// insertion sort, at most three formats
	for i := 1; i < len(rest); i++ {
		for j := i; j > 0 && rank[rest[j]] > rank[rest[j-1]]; j-- {
			rest[j], rest[j-1] = rest[j-1], rest[j]
		}
	}
	return append(out, rest...)
}
