// Package quality searches the encoder quality scale for the encoding that
// lands closest to, without exceeding, a target size.
package quality

import "context"

const (
	MinQuality = 1
	MaxQuality = 100

	// KB is the unit all size comparisons are made in.
	KB = 1024
)

// EncodeFunc encodes the image under search at the given quality.
type EncodeFunc func(quality int) ([]byte, error)

// Probe is one encode attempt.
type Probe struct {
	Quality int
	Data    []byte
}

// SizeKB returns the probe size in kilobytes.
func (p *Probe) SizeKB() float64 {
	return float64(len(p.Data)) / KB
}

// Outcome is the result of a search.
type Outcome struct {
	// Fit is the largest probe at or under the target, nil if none fit.
	Fit *Probe
	// Smallest is the smallest probe that exceeded the target, kept as a
	// fallback when nothing fits.
	Smallest *Probe
	// Probes counts encode attempts, including a failed one.
	Probes int
}

// Search finds the highest quality whose encoding is at or under targetKB.
//
// Full quality is probed first so generous targets cost a single encode.
// Otherwise the search bisects [MinQuality, MaxQuality-1]: a probe that fits
// moves the search up, one that overflows moves it down. The search stops
// once a fitting probe reaches stopCloseness of the target or the interval
// collapses. ctx is checked between probes.
func Search(ctx context.Context, encode EncodeFunc, targetKB, stopCloseness float64) (Outcome, error) {
	var out Outcome

	try := func(q int) (*Probe, bool, error) {
		out.Probes++
		data, err := encode(q)
		if err != nil {
			return nil, false, err
		}
		p := &Probe{Quality: q, Data: data}
		fits := p.SizeKB() <= targetKB
		if fits {
			if out.Fit == nil || len(p.Data) > len(out.Fit.Data) {
				out.Fit = p
			}
		} else if out.Smallest == nil || len(p.Data) < len(out.Smallest.Data) {
			out.Smallest = p
		}
		return p, fits, nil
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if _, fits, err := try(MaxQuality); err != nil || fits {
		return out, err
	}

	low, high := MinQuality, MaxQuality-1
	for low <= high {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		mid := (low + high) / 2
		p, fits, err := try(mid)
		if err != nil {
			return out, err
		}

		if fits {
			if p.SizeKB()/targetKB >= stopCloseness {
				break
			}
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	return out, nil
}

// Closeness is achieved/target for a probe that fits, in (0, 1].
func Closeness(sizeKB, targetKB float64) float64 {
	if targetKB <= 0 {
		return 0
	}
	return sizeKB / targetKB
}
