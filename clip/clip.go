// Package clip restricts event lists to a time window.
package clip

import (
	"fmt"
	"math"

	"github.com/jsphweid/amtdata/model"
)

// Event is anything with an [onset, offset) span that can be rebuilt with
// a new span.
type Event[T any] interface {
	Span() (float64, float64)
	WithSpan(onset, offset float64) T
}

// Events keeps the events overlapping w, clamped to it and shifted so the
// window starts at zero. Input order is preserved. Zero-length events are
// not malformed but never overlap a window, so they are dropped.
func Events[T Event[T]](events []T, w model.TimeWindow) ([]T, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	end := w.End()
	res := make([]T, 0, len(events))
	for i, e := range events {
		onset, offset := e.Span()
		if err := model.ValidateSpan(onset, offset); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		lo := math.Max(onset, w.Start)
		hi := math.Min(offset, end)
		if hi <= lo {
			continue
		}
		// clamp again after the shift so re-clipping to [0, duration) is a no-op
		newOnset := lo - w.Start
		newOffset := math.Min(hi-w.Start, w.Duration)
		if newOffset <= newOnset {
			continue
		}
		res = append(res, e.WithSpan(newOnset, newOffset))
	}
	return res, nil
}

func Notes(notes []model.NoteEvent, w model.TimeWindow) ([]model.NoteEvent, error) {
	return Events(notes, w)
}

func Pedals(pedals []model.PedalInterval, w model.TimeWindow) ([]model.PedalInterval, error) {
	return Events(pedals, w)
}

// Times keeps the timestamps in [w.Start, w.End()) relative to w.Start.
func Times(times []float64, w model.TimeWindow) []float64 {
	end := w.End()
	var res []float64
	for _, t := range times {
		if t >= w.Start && t < end {
			res = append(res, t-w.Start)
		}
	}
	return res
}

// Track clips the notes and pedals of t. Metadata is copied as is.
func Track(t model.Track, w model.TimeWindow) (model.Track, error) {
	notes, err := Notes(t.Notes, w)
	if err != nil {
		return model.Track{}, fmt.Errorf("track %q notes: %w", t.ID, err)
	}
	pedals, err := Pedals(t.Pedals, w)
	if err != nil {
		return model.Track{}, fmt.Errorf("track %q pedals: %w", t.ID, err)
	}
	t.Notes = notes
	t.Pedals = pedals
	return t, nil
}

func checkWindow(w model.TimeWindow) error {
	if !(w.Duration > 0) || math.IsInf(w.Duration, 0) || !(w.Start >= 0) {
		return fmt.Errorf("%w: [%v, +%v)", model.ErrEmptyWindow, w.Start, w.Duration)
	}
	return nil
}
