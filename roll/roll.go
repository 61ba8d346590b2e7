// Package roll rasterizes window-relative notes into piano rolls.
package roll

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/util"
)

type Config struct {
	FPS         float64
	Pitches     int
	LowestPitch int
}

func DefaultConfig() Config {
	return Config{FPS: constants.DefaultFPS, Pitches: constants.DefaultPitchesNum}
}

// FrameGrid holds one roll. Note channels are frames × pitches, pedal
// channels have one entry per frame. Onsets, Frames, Offsets and the pedal
// channels hold 0 or 1; Velocities holds velocity/127.
type FrameGrid struct {
	FPS         float64
	LowestPitch int

	Onsets     *mat.Dense
	Frames     *mat.Dense
	Offsets    *mat.Dense
	Velocities *mat.Dense

	PedalOnsets  *mat.VecDense
	PedalFrames  *mat.VecDense
	PedalOffsets *mat.VecDense
}

type TrackKey struct {
	ID        string
	InstClass string
	IsDrum    bool
}

// TrackGrid is the roll of a single track in multi-track mode.
type TrackGrid struct {
	Key  TrackKey
	Grid *FrameGrid
}

// NumFrames is round(duration*fps).
func NumFrames(duration, fps float64) (int, error) {
	n := math.Round(duration * fps)
	if !(n > 0) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %v s at %v fps gives %v frames", model.ErrOutOfRangeFrame, duration, fps, n)
	}
	return int(n), nil
}

// New returns an all-zero grid for a window of duration seconds.
func (c Config) New(duration float64) (*FrameGrid, error) {
	if c.Pitches <= 0 {
		return nil, fmt.Errorf("%w: pitch range of %d", model.ErrOutOfRangeFrame, c.Pitches)
	}
	n, err := NumFrames(duration, c.FPS)
	if err != nil {
		return nil, err
	}
	return &FrameGrid{
		FPS:          c.FPS,
		LowestPitch:  c.LowestPitch,
		Onsets:       mat.NewDense(n, c.Pitches, nil),
		Frames:       mat.NewDense(n, c.Pitches, nil),
		Offsets:      mat.NewDense(n, c.Pitches, nil),
		Velocities:   mat.NewDense(n, c.Pitches, nil),
		PedalOnsets:  mat.NewVecDense(n, nil),
		PedalFrames:  mat.NewVecDense(n, nil),
		PedalOffsets: mat.NewVecDense(n, nil),
	}, nil
}

// Rasterize merges all tracks into one grid.
func (c Config) Rasterize(duration float64, tracks ...model.Track) (*FrameGrid, error) {
	g, err := c.New(duration)
	if err != nil {
		return nil, err
	}
	for _, t := range tracks {
		g.AddNotes(duration, t.Notes)
		g.AddPedals(duration, t.Pedals)
	}
	return g, nil
}

// RasterizeTracks gives every track its own grid, in input order.
func (c Config) RasterizeTracks(duration float64, tracks []model.Track) ([]TrackGrid, error) {
	res := make([]TrackGrid, 0, len(tracks))
	for _, t := range tracks {
		g, err := c.Rasterize(duration, t)
		if err != nil {
			return nil, fmt.Errorf("track %q: %w", t.ID, err)
		}
		res = append(res, TrackGrid{
			Key:  TrackKey{ID: t.ID, InstClass: t.InstClass, IsDrum: t.IsDrum},
			Grid: g,
		})
	}
	return res, nil
}

func (g *FrameGrid) NumFrames() int {
	r, _ := g.Frames.Dims()
	return r
}

func (g *FrameGrid) NumPitches() int {
	_, c := g.Frames.Dims()
	return c
}

// AddNotes sets bits for notes. Bits are only ever set, so overlapping
// notes of one pitch blur together.
func (g *FrameGrid) AddNotes(duration float64, notes []model.NoteEvent) {
	for _, n := range notes {
		col := n.Pitch - g.LowestPitch
		if col < 0 || col >= g.NumPitches() {
			continue
		}
		begin, end, off, ok := g.span(duration, n.Onset, n.Offset)
		if !ok {
			continue
		}
		vel := float64(n.Velocity) / 127
		g.Onsets.Set(begin, col, 1)
		g.Offsets.Set(off, col, 1)
		for f := begin; f < end; f++ {
			g.Frames.Set(f, col, 1)
			if vel > g.Velocities.At(f, col) {
				g.Velocities.Set(f, col, vel)
			}
		}
	}
}

func (g *FrameGrid) AddPedals(duration float64, pedals []model.PedalInterval) {
	for _, p := range pedals {
		begin, end, off, ok := g.span(duration, p.Onset, p.Offset)
		if !ok {
			continue
		}
		g.PedalOnsets.SetVec(begin, 1)
		g.PedalOffsets.SetVec(off, 1)
		for f := begin; f < end; f++ {
			g.PedalFrames.SetVec(f, 1)
		}
	}
}

// span maps [onset, offset) to the onset frame, the end of the active
// frames (exclusive) and the offset frame.
func (g *FrameGrid) span(duration, onset, offset float64) (int, int, int, bool) {
	if model.ValidateSpan(onset, offset) != nil || onset >= duration {
		return 0, 0, 0, false
	}
	n := g.NumFrames()
	begin := int(math.Floor(onset * g.FPS))
	if begin >= n {
		return 0, 0, 0, false
	}
	end := util.Clamp(int(math.Ceil(offset*g.FPS)), begin+1, n)
	off := util.Clamp(int(math.Floor(offset*g.FPS)), begin, n-1)
	return begin, end, off, true
}
