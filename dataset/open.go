package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jsphweid/amtdata/audio"
	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/crop"
	"github.com/jsphweid/amtdata/db"
	"github.com/jsphweid/amtdata/file"
	"github.com/jsphweid/amtdata/midi"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/pedal"
	"github.com/jsphweid/amtdata/roll"
)

// Open builds the Dataset described by c. Items come from the DynamoDB
// manifest when a table is configured, otherwise from the dataset root.
func Open(ctx context.Context, c *config.Config, seed uint64) (*Dataset, error) {
	items, err := listItems(ctx, c)
	if err != nil {
		return nil, err
	}
	if c.Audio.Decoder == config.DecoderSynth {
		// render the target MIDI instead of reading a recording
		for i := range items {
			items[i].AudioPath = items[i].MidiPath
		}
	}

	decoder, err := NewDecoder(c.Audio)
	if err != nil {
		return nil, err
	}
	policy, err := pedal.ParsePolicy(c.Pedal.SamePitch)
	if err != nil {
		return nil, err
	}
	selector := crop.Full()
	if c.Crop.Enabled {
		selector = crop.NewSelector(c.Crop.ClipDuration, c.Crop.EndPad, seed)
	}

	assembler := &Assembler{
		Selector:    selector,
		Decoder:     decoder,
		SampleRate:  c.SampleRate,
		Mono:        c.Mono,
		LoadTarget:  c.Target.Load,
		ExtendPedal: c.Pedal.Extend,
		Policy:      policy,
		Kind:        c.Target.Kind,
		Roll: roll.Config{
			FPS:         c.Target.FPS,
			Pitches:     c.Target.PitchesNum,
			LowestPitch: c.Target.LowestPitch,
		},
		Question: RandomQuestion(crop.NewRand(seed + 1)),
	}

	d := &Dataset{Items: items, Assembler: assembler}
	switch c.Dataset {
	case config.DatasetSlakh2100:
		d.Name = NameSlakh2100
		d.Targets = SlakhTargets{Midi: midi.Reader{}, Missing: c.Stems.Missing}
	case config.DatasetGuitarSet:
		d.Name = NameGuitarSet
		d.Targets = GuitarSetTargets{Midi: midi.Reader{}}
	default:
		return nil, fmt.Errorf("%w: unknown dataset %q", config.ErrInvalidConfig, c.Dataset)
	}
	return d, nil
}

func listItems(ctx context.Context, c *config.Config) ([]model.Item, error) {
	if c.Manifest.DynamoDBTable != "" {
		client, err := db.NewClient(c.Manifest.Region, c.Manifest.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		items, err := db.GetItems(ctx, client, c.Manifest.DynamoDBTable, c.Split)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].AudioPath = resolve(c.Root, items[i].AudioPath)
			items[i].MidiPath = resolve(c.Root, items[i].MidiPath)
		}
		return items, nil
	}
	switch c.Dataset {
	case config.DatasetGuitarSet:
		return file.ReadGuitarSet(c.Root, c.Split)
	default:
		return file.ListSlakh(c.Root, c.Split)
	}
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

func NewDecoder(c config.Audio) (audio.Decoder, error) {
	ffmpeg := audio.FFmpegDecoder{Path: c.FFmpegPath}
	switch c.Decoder {
	case config.DecoderWav:
		return audio.WavDecoder{}, nil
	case config.DecoderFFmpeg:
		return ffmpeg, nil
	case config.DecoderSynth:
		return audio.NewSynthDecoder(c.SoundFont)
	}
	auto := audio.AutoDecoder{FFmpeg: ffmpeg}
	if c.SoundFont != "" {
		synth, err := audio.NewSynthDecoder(c.SoundFont)
		if err != nil {
			return nil, err
		}
		auto.Synth = synth
	}
	return auto, nil
}
