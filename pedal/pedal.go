// Package pedal turns sustain pedal events into intervals and applies them
// to note durations.
package pedal

import (
	"fmt"
	"math"
	"sort"

	"github.com/jsphweid/amtdata/model"
)

// Event is a raw sustain pedal change.
type Event struct {
	Time float64
	Down bool
}

// Policy decides what happens when a sustained note runs into a later note
// of the same pitch.
type Policy int

const (
	// ClampToNextOnset ends the sustained note where the next same-pitch note starts.
	ClampToNextOnset Policy = iota
	// IgnoreLaterOnsets lets sustained notes overlap later same-pitch notes.
	IgnoreLaterOnsets
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "clamp":
		return ClampToNextOnset, nil
	case "ignore":
		return IgnoreLaterOnsets, nil
	}
	return 0, fmt.Errorf("unknown same pitch policy %q", s)
}

func (p Policy) String() string {
	if p == IgnoreLaterOnsets {
		return "ignore"
	}
	return "clamp"
}

// Pair builds pedal-down intervals from time-ordered events. Repeated
// downs are ignored, and a pedal still down at the end is released at
// horizon.
func Pair(events []Event, horizon float64) []model.PedalInterval {
	var res []model.PedalInterval
	down := false
	var start float64
	for _, e := range events {
		switch {
		case e.Down && !down:
			down = true
			start = e.Time
		case !e.Down && down:
			down = false
			if e.Time > start {
				res = append(res, model.PedalInterval{Onset: start, Offset: e.Time})
			}
		}
	}
	if down && horizon > start {
		res = append(res, model.PedalInterval{Onset: start, Offset: horizon})
	}
	return res
}

// Extend lengthens every note that ends while the pedal is held so that it
// ends on the pedal release. Only offsets change; notes keep their order.
func Extend(notes []model.NoteEvent, pedals []model.PedalInterval, policy Policy) ([]model.NoteEvent, error) {
	for i, n := range notes {
		if err := model.ValidateSpan(n.Onset, n.Offset); err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
	}
	for i, p := range pedals {
		if err := model.ValidateSpan(p.Onset, p.Offset); err != nil {
			return nil, fmt.Errorf("pedal %d: %w", i, err)
		}
	}

	res := append([]model.NoteEvent(nil), notes...)
	if len(pedals) == 0 {
		return res, nil
	}

	merged := merge(pedals)
	var nextOnset []float64
	if policy == ClampToNextOnset {
		nextOnset = nextSamePitchOnsets(res)
	}
	for i, n := range res {
		release, ok := heldAt(merged, n.Offset)
		if !ok {
			continue
		}
		if nextOnset != nil && release > nextOnset[i] {
			release = max(n.Offset, nextOnset[i])
		}
		res[i].Offset = release
	}
	return res, nil
}

// merge sorts intervals and joins overlapping ones. Touching intervals
// stay apart so a release and re-press at the same instant is kept.
func merge(pedals []model.PedalInterval) []model.PedalInterval {
	sorted := append([]model.PedalInterval(nil), pedals...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Onset < sorted[j].Onset
	})
	res := sorted[:1]
	for _, p := range sorted[1:] {
		last := &res[len(res)-1]
		if p.Onset < last.Offset {
			last.Offset = max(last.Offset, p.Offset)
			continue
		}
		res = append(res, p)
	}
	return res
}

// heldAt returns the release time of the interval strictly containing t.
func heldAt(merged []model.PedalInterval, t float64) (float64, bool) {
	i := sort.Search(len(merged), func(i int) bool {
		return merged[i].Onset >= t
	})
	if i == 0 {
		return 0, false
	}
	p := merged[i-1]
	if t < p.Offset {
		return p.Offset, true
	}
	return 0, false
}

// nextSamePitchOnsets returns, per note, the earliest later onset of the
// same pitch, or +Inf.
func nextSamePitchOnsets(notes []model.NoteEvent) []float64 {
	byPitch := map[int][]int{}
	for i, n := range notes {
		byPitch[n.Pitch] = append(byPitch[n.Pitch], i)
	}
	res := make([]float64, len(notes))
	for _, idx := range byPitch {
		sort.SliceStable(idx, func(a, b int) bool {
			return notes[idx[a]].Onset < notes[idx[b]].Onset
		})
		for k, i := range idx {
			res[i] = math.Inf(1)
			for _, j := range idx[k+1:] {
				if notes[j].Onset > notes[i].Onset {
					res[i] = notes[j].Onset
					break
				}
			}
		}
	}
	return res
}
