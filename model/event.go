package model

import (
	"fmt"
	"math"
)

// NoteEvent is one note with absolute times in seconds.
type NoteEvent struct {
	Onset    float64
	Offset   float64
	Pitch    int
	Velocity int
	// TrackID is empty when the note is not tied to a stem.
	TrackID string
}

func (n NoteEvent) Span() (float64, float64) {
	return n.Onset, n.Offset
}

func (n NoteEvent) WithSpan(onset, offset float64) NoteEvent {
	n.Onset = onset
	n.Offset = offset
	return n
}

// PedalInterval is the time the sustain pedal is held down.
type PedalInterval struct {
	Onset  float64
	Offset float64
}

func (p PedalInterval) Span() (float64, float64) {
	return p.Onset, p.Offset
}

func (p PedalInterval) WithSpan(onset, offset float64) PedalInterval {
	return PedalInterval{Onset: onset, Offset: offset}
}

// ValidateSpan reports ErrMalformedEvent for negative, non-finite or
// inverted spans. A zero-length span (offset == onset) is valid; it covers
// no time, so the clipper and rasterizer leave it out.
func ValidateSpan(onset, offset float64) error {
	if math.IsNaN(onset) || math.IsInf(onset, 0) || math.IsNaN(offset) || math.IsInf(offset, 0) {
		return fmt.Errorf("%w: non-finite span [%v, %v)", ErrMalformedEvent, onset, offset)
	}
	if onset < 0 {
		return fmt.Errorf("%w: negative onset %v", ErrMalformedEvent, onset)
	}
	if offset < onset {
		return fmt.Errorf("%w: offset %v before onset %v", ErrMalformedEvent, offset, onset)
	}
	return nil
}
