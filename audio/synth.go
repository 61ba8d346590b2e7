package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

const renderBlock = 1024

// SynthDecoder renders MIDI files to stereo audio with a SoundFont.
type SynthDecoder struct {
	soundFont *meltysynth.SoundFont
}

func NewSynthDecoder(soundFontPath string) (*SynthDecoder, error) {
	dat, err := os.ReadFile(soundFontPath)
	if err != nil {
		return nil, fmt.Errorf("could not read soundfont: %w", err)
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(dat))
	if err != nil {
		return nil, fmt.Errorf("could not parse soundfont %v: %w", soundFontPath, err)
	}
	return &SynthDecoder{soundFont: sf}, nil
}

func readMidiFile(path string) (*meltysynth.MidiFile, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read midi file: %w", err)
	}
	m, err := meltysynth.NewMidiFile(bytes.NewReader(dat))
	if err != nil {
		return nil, fmt.Errorf("could not parse midi file %v: %w", path, err)
	}
	return m, nil
}

func (s *SynthDecoder) Duration(_ context.Context, path string) (float64, error) {
	m, err := readMidiFile(path)
	if err != nil {
		return 0, err
	}
	return m.GetLength().Seconds(), nil
}

// Decode renders from the start of the file and discards everything before
// offset, since the sequencer cannot seek.
func (s *SynthDecoder) Decode(ctx context.Context, path string, sampleRate int, offset, duration float64) (Buffer, error) {
	m, err := readMidiFile(path)
	if err != nil {
		return nil, err
	}
	synth, err := meltysynth.NewSynthesizer(s.soundFont, meltysynth.NewSynthesizerSettings(int32(sampleRate)))
	if err != nil {
		return nil, fmt.Errorf("could not create synthesizer: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(m, false)

	skip := NumSamples(offset, sampleRate)
	n := NumSamples(duration, sampleRate)
	out := Buffer{make([]float32, n), make([]float32, n)}
	left := make([]float32, renderBlock)
	right := make([]float32, renderBlock)

	for pos := 0; pos < skip+n; pos += renderBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seq.Render(left, right)
		for i := 0; i < renderBlock; i++ {
			j := pos + i - skip
			if j < 0 {
				continue
			}
			if j >= n {
				break
			}
			out[0][j] = left[i]
			out[1][j] = right[i]
		}
	}
	return out, nil
}
