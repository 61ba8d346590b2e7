package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/file"
	"github.com/jsphweid/amtdata/model"
)

var ErrIndexOutOfRange = errors.New("index out of range")

const (
	NameSlakh2100 = "Slakh2100"
	NameGuitarSet = "GuitarSet"
)

// Source is an indexable collection of examples.
type Source interface {
	Len() int
	Get(ctx context.Context, index int) (*Example, error)
}

// MidiReader is the MIDI parsing the targets need.
type MidiReader interface {
	ReadTrack(path string) (model.Track, error)
	ReadBeats(path string) ([]float64, []float64, error)
}

// Dataset is a Source over a fixed item list. It is not safe for concurrent
// Gets; use WithSeed to give each worker its own.
type Dataset struct {
	Name      string
	Items     []model.Item
	Assembler *Assembler
	Targets   TargetLoader
}

func (d *Dataset) Len() int {
	return len(d.Items)
}

func (d *Dataset) Get(ctx context.Context, index int) (*Example, error) {
	if index < 0 || index >= len(d.Items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(d.Items))
	}
	item := d.Items[index]
	ex, err := d.Assembler.Assemble(ctx, item, d.Targets)
	if err != nil {
		return nil, fmt.Errorf("%v item %d (%v): %w", d.Name, index, item.Name, err)
	}
	ex.DatasetName = d.Name
	return ex, nil
}

// WithSeed returns a Dataset sharing d's items and decoders with its own
// random state.
func (d *Dataset) WithSeed(seed uint64) *Dataset {
	c := *d
	c.Assembler = d.Assembler.WithSeed(seed)
	return &c
}

// SlakhTargets reads one track per stem listed in the song's metadata.yaml,
// and beats from the mix MIDI.
type SlakhTargets struct {
	Midi MidiReader
	// Missing is config.MissingSkip or config.MissingFail.
	Missing string
}

func (s SlakhTargets) Load(ctx context.Context, item model.Item) (Target, error) {
	logger := log.FromContext(ctx)
	dir := filepath.Dir(item.MidiPath)

	stems, err := file.ReadSlakhMetadata(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		return Target{}, err
	}
	beats, downbeats, err := s.Midi.ReadBeats(item.MidiPath)
	if err != nil {
		return Target{}, fmt.Errorf("could not read beats: %w", err)
	}

	target := Target{Beats: beats, Downbeats: downbeats}
	for _, stem := range stems {
		if !stem.MidiSaved {
			continue
		}
		path := filepath.Join(dir, "MIDI", stem.Name+".mid")
		track, err := s.Midi.ReadTrack(path)
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v: %v", model.ErrMissingStem, stem.Name, err)
			if s.Missing == config.MissingFail {
				return Target{}, err
			}
			logger.Warn("skipping stem", "item", item.Name, "stem", stem.Name, "err", err)
			continue
		}
		if err != nil {
			return Target{}, fmt.Errorf("stem %v: %w", stem.Name, err)
		}
		track.ID = stem.Name
		track.InstClass = stem.InstClass
		track.IsDrum = stem.IsDrum
		track.Meta = stem
		if track.Program < 0 {
			track.Program = stem.ProgramNum
		}
		target.Tracks = append(target.Tracks, track)
	}
	return target, nil
}

// GuitarSetTargets reads the single annotated track of a GuitarSet take.
type GuitarSetTargets struct {
	Midi MidiReader
}

func (g GuitarSetTargets) Load(_ context.Context, item model.Item) (Target, error) {
	track, err := g.Midi.ReadTrack(item.MidiPath)
	if err != nil {
		return Target{}, err
	}
	track.ID = item.Name
	track.InstClass = "Guitar"
	return Target{Tracks: []model.Track{track}}, nil
}
