package config

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/pedal"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	DatasetSlakh2100 = "slakh2100"
	DatasetGuitarSet = "guitarset"
)

// target kinds
const (
	KindEvents     = "events"
	KindPianoRoll  = "piano_roll"
	KindMultitrack = "multitrack"
)

const (
	MissingSkip = "skip"
	MissingFail = "fail"
)

const (
	DecoderAuto   = "auto"
	DecoderWav    = "wav"
	DecoderFFmpeg = "ffmpeg"
	DecoderSynth  = "synth"
)

type Crop struct {
	Enabled      bool    `yaml:"enabled"`
	ClipDuration float64 `yaml:"clip_duration"`
	EndPad       float64 `yaml:"end_pad"`
}

type Target struct {
	Load        bool    `yaml:"load"`
	Kind        string  `yaml:"kind"`
	FPS         float64 `yaml:"fps"`
	PitchesNum  int     `yaml:"pitches_num"`
	LowestPitch int     `yaml:"lowest_pitch"`
}

type Pedal struct {
	Extend    bool   `yaml:"extend"`
	SamePitch string `yaml:"same_pitch"`
}

type Stems struct {
	Missing string `yaml:"missing"`
}

type Audio struct {
	Decoder    string `yaml:"decoder"`
	FFmpegPath string `yaml:"ffmpeg_path"`
	SoundFont  string `yaml:"soundfont"`
}

// Manifest points at a DynamoDB table listing the items of each split. When
// no table is set items come from the dataset directory.
type Manifest struct {
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	Region           string `yaml:"region"`
}

type Config struct {
	Dataset    string   `yaml:"dataset"`
	Root       string   `yaml:"root"`
	Split      string   `yaml:"split"`
	SampleRate int      `yaml:"sample_rate"`
	Mono       bool     `yaml:"mono"`
	Seed       uint64   `yaml:"seed"`
	Crop       Crop     `yaml:"crop"`
	Target     Target   `yaml:"target"`
	Pedal      Pedal    `yaml:"pedal"`
	Stems      Stems    `yaml:"stems"`
	Audio      Audio    `yaml:"audio"`
	Manifest   Manifest `yaml:"manifest"`
}

func Default() *Config {
	return &Config{
		Dataset:    DatasetSlakh2100,
		Split:      "train",
		SampleRate: constants.DefaultSampleRate,
		Mono:       true,
		Crop: Crop{
			Enabled:      true,
			ClipDuration: constants.DefaultClipDuration,
			EndPad:       constants.DefaultEndPad,
		},
		Target: Target{
			Load:       true,
			Kind:       KindPianoRoll,
			FPS:        constants.DefaultFPS,
			PitchesNum: constants.DefaultPitchesNum,
		},
		Pedal: Pedal{Extend: true, SamePitch: "clamp"},
		Stems: Stems{Missing: MissingSkip},
		Audio: Audio{Decoder: DecoderAuto},
	}
}

// Read decodes name from fsys over the defaults, applies environment
// overrides and validates the result.
func Read(fsys fs.FS, name string) (*Config, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open: %w", err)
	}
	defer f.Close()

	config := Default()
	err = yaml.NewDecoder(f).Decode(config)
	if err != nil {
		return nil, fmt.Errorf("could not decode: %w", err)
	}
	config.Root = constants.GetDatasetRoot(config.Root)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Dataset {
	case DatasetSlakh2100, DatasetGuitarSet:
	default:
		return invalid("unknown dataset %q", c.Dataset)
	}
	switch c.Split {
	case "train", "validation", "test":
	default:
		return invalid("unknown split %q", c.Split)
	}
	if c.Root == "" && c.Manifest.DynamoDBTable == "" {
		return invalid("root is required")
	}
	if c.SampleRate <= 0 {
		return invalid("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Crop.Enabled && c.Crop.ClipDuration <= 0 {
		return invalid("crop.clip_duration must be positive, got %v", c.Crop.ClipDuration)
	}
	switch c.Target.Kind {
	case KindEvents, KindPianoRoll, KindMultitrack:
	default:
		return invalid("unknown target.kind %q", c.Target.Kind)
	}
	if c.Target.FPS <= 0 {
		return invalid("target.fps must be positive, got %v", c.Target.FPS)
	}
	if c.Target.PitchesNum <= 0 {
		return invalid("target.pitches_num must be positive, got %d", c.Target.PitchesNum)
	}
	if c.Target.LowestPitch < 0 || c.Target.LowestPitch > 127 {
		return invalid("target.lowest_pitch out of range: %d", c.Target.LowestPitch)
	}
	if _, err := pedal.ParsePolicy(c.Pedal.SamePitch); err != nil {
		return invalid("pedal.same_pitch: %v", err)
	}
	switch c.Stems.Missing {
	case MissingSkip, MissingFail:
	default:
		return invalid("unknown stems.missing %q", c.Stems.Missing)
	}
	switch c.Audio.Decoder {
	case DecoderAuto, DecoderWav, DecoderFFmpeg:
	case DecoderSynth:
		if c.Audio.SoundFont == "" {
			return invalid("audio.soundfont is required for the synth decoder")
		}
	default:
		return invalid("unknown audio.decoder %q", c.Audio.Decoder)
	}
	return nil
}
