package dataset

import (
	"context"
	"fmt"

	"github.com/jsphweid/amtdata/audio"
	"github.com/jsphweid/amtdata/clip"
	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/crop"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/pedal"
	"github.com/jsphweid/amtdata/roll"
)

// Target is the symbolic side of a whole recording before any cropping.
type Target struct {
	Tracks    []model.Track
	Beats     []float64
	Downbeats []float64
}

// TargetLoader reads the target of one item. It is only called once the
// window and the audio are known to be good.
type TargetLoader interface {
	Load(ctx context.Context, item model.Item) (Target, error)
}

// Assembler turns one item into one Example. It holds a Selector and so has
// the same goroutine rules: fork one per worker with WithSeed.
type Assembler struct {
	Selector   *crop.Selector
	Decoder    audio.Decoder
	SampleRate int
	Mono       bool

	LoadTarget  bool
	ExtendPedal bool
	Policy      pedal.Policy
	Kind        string
	Roll        roll.Config

	Question func() string
}

func (a *Assembler) WithSeed(seed uint64) *Assembler {
	c := *a
	c.Selector = a.Selector.WithSeed(seed)
	if a.Question != nil {
		c.Question = RandomQuestion(crop.NewRand(seed + 1))
	}
	return &c
}

// Assemble selects a window once, extracts its audio and builds the target
// for it. Any failure fails the whole example.
func (a *Assembler) Assemble(ctx context.Context, item model.Item, loader TargetLoader) (*Example, error) {
	total, err := a.Decoder.Duration(ctx, item.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("could not get duration of %v: %w", item.AudioPath, err)
	}
	w, err := a.Selector.Select(total)
	if err != nil {
		return nil, err
	}

	buf, err := a.Decoder.Decode(ctx, item.AudioPath, a.SampleRate, w.Start, w.Duration)
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", item.AudioPath, err)
	}
	if a.Mono {
		buf = audio.Mono(buf)
	}

	ex := &Example{
		Name:       item.Name,
		AudioPath:  item.AudioPath,
		MidiPath:   item.MidiPath,
		Audio:      buf,
		SampleRate: a.SampleRate,
		StartTime:  w.Start,
		Duration:   w.Duration,
	}
	if a.Question != nil {
		ex.Question = a.Question()
	}
	if !a.LoadTarget || loader == nil {
		return ex, nil
	}

	target, err := loader.Load(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := a.fillTarget(ex, target, w); err != nil {
		return nil, err
	}
	return ex, nil
}

func (a *Assembler) fillTarget(ex *Example, target Target, w model.TimeWindow) error {
	tracks := make([]model.Track, 0, len(target.Tracks))
	for _, t := range target.Tracks {
		if a.ExtendPedal {
			notes, err := pedal.Extend(t.Notes, t.Pedals, a.Policy)
			if err != nil {
				return fmt.Errorf("track %q: %w", t.ID, err)
			}
			t.Notes = notes
		}
		clipped, err := clip.Track(t, w)
		if err != nil {
			return err
		}
		tracks = append(tracks, clipped)
	}
	ex.Tracks = tracks
	ex.Beats = clip.Times(target.Beats, w)
	ex.Downbeats = clip.Times(target.Downbeats, w)

	var err error
	switch a.Kind {
	case config.KindPianoRoll:
		ex.Roll, err = a.Roll.Rasterize(w.Duration, tracks...)
	case config.KindMultitrack:
		ex.Rolls, err = a.Roll.RasterizeTracks(w.Duration, tracks)
	}
	return err
}
