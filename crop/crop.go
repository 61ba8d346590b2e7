// Package crop picks the time window an example is cut from.
package crop

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jsphweid/amtdata/model"
)

// Selector draws crops of a fixed length. It owns its random source, so a
// Selector must not be shared between goroutines; give each worker its own
// seed instead.
type Selector struct {
	Enabled      bool
	ClipDuration float64
	EndPad       float64

	rng *rand.Rand
}

func NewSelector(clipDuration, endPad float64, seed uint64) *Selector {
	return &Selector{
		Enabled:      true,
		ClipDuration: clipDuration,
		EndPad:       endPad,
		rng:          NewRand(seed),
	}
}

// Full returns a Selector that always covers the whole source.
func Full() *Selector {
	return &Selector{}
}

// NewRand builds the seeded source used for crops and prompts.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WithSeed returns a copy of s drawing from its own source.
func (s *Selector) WithSeed(seed uint64) *Selector {
	c := *s
	c.rng = NewRand(seed)
	return &c
}

func (s *Selector) Select(total float64) (model.TimeWindow, error) {
	if !s.Enabled {
		if !(total > 0) || math.IsInf(total, 0) {
			return model.TimeWindow{}, fmt.Errorf("%w: source duration %v", model.ErrEmptyWindow, total)
		}
		return model.TimeWindow{Start: 0, Duration: total}, nil
	}
	return Select(s.rng, total, s.ClipDuration, s.EndPad)
}

// Select picks a window of clipDuration inside [0, total). Sources no
// longer than clipDuration come back whole. endPad shrinks the range the
// start is drawn from, but never below a start of 0.
func Select(r *rand.Rand, total, clipDuration, endPad float64) (model.TimeWindow, error) {
	if !(clipDuration > 0) || math.IsInf(clipDuration, 0) {
		return model.TimeWindow{}, fmt.Errorf("%w: clip duration %v", model.ErrEmptyWindow, clipDuration)
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return model.TimeWindow{}, fmt.Errorf("%w: source duration %v", model.ErrEmptyWindow, total)
	}
	if total <= clipDuration {
		return model.TimeWindow{Start: 0, Duration: total}, nil
	}

	hi := total - clipDuration - math.Max(endPad, 0)
	if hi < 0 {
		hi = 0
	}
	start := r.Float64() * hi
	for start > 0 && start+clipDuration > total {
		start = math.Nextafter(start, 0)
	}
	return model.TimeWindow{Start: start, Duration: clipDuration}, nil
}
