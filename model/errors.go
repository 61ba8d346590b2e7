package model

import "errors"

var (
	// ErrMalformedEvent is returned for notes or pedals with inverted,
	// negative or non-finite timestamps.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrEmptyWindow is returned when a crop has no length.
	ErrEmptyWindow = errors.New("empty window")

	// ErrMissingStem is returned when a stem listed in the metadata has no
	// MIDI file.
	ErrMissingStem = errors.New("missing stem")

	// ErrOutOfRangeFrame is returned when a frame grid would have no frames.
	ErrOutOfRangeFrame = errors.New("out of range frame")
)
