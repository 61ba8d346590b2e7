package audio

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Buffer holds decoded samples as channels x samples.
type Buffer [][]float32

func (b Buffer) NumChannels() int {
	return len(b)
}

func (b Buffer) NumSamples() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Decoder extracts a window of a recording at a target sample rate. Decode
// returns exactly NumSamples(duration, sampleRate) samples per channel.
type Decoder interface {
	Duration(ctx context.Context, path string) (float64, error)
	Decode(ctx context.Context, path string, sampleRate int, offset, duration float64) (Buffer, error)
}

func NumSamples(duration float64, sampleRate int) int {
	n := int(math.Round(duration * float64(sampleRate)))
	if n < 0 {
		return 0
	}
	return n
}

// FitLength truncates or zero-pads every channel to n samples.
func FitLength(b Buffer, n int) Buffer {
	out := make(Buffer, len(b))
	for c, ch := range b {
		dst := make([]float32, n)
		copy(dst, ch)
		out[c] = dst
	}
	return out
}

// Mono averages all channels into one.
func Mono(b Buffer) Buffer {
	if len(b) <= 1 {
		return b
	}
	n := b.NumSamples()
	out := make([]float32, n)
	for _, ch := range b {
		for i := 0; i < n && i < len(ch); i++ {
			out[i] += ch[i]
		}
	}
	scale := 1 / float32(len(b))
	for i := range out {
		out[i] *= scale
	}
	return Buffer{out}
}

// Resample reads duration seconds starting at offset from a buffer sampled
// at from Hz and returns it at to Hz, with linear interpolation between
// neighbouring samples. Reads past the end of the source are zero.
func Resample(b Buffer, from, to int, offset, duration float64) Buffer {
	n := NumSamples(duration, to)
	ratio := float64(from) / float64(to)
	start := offset * float64(from)

	out := make(Buffer, len(b))
	for c, ch := range b {
		dst := make([]float32, n)
		for i := range dst {
			pos := start + float64(i)*ratio
			j := int(pos)
			if j >= len(ch) {
				break
			}
			v := ch[j]
			if frac := float32(pos - float64(j)); frac > 0 && j+1 < len(ch) {
				v += (ch[j+1] - v) * frac
			}
			dst[i] = v
		}
		out[c] = dst
	}
	return out
}

// AutoDecoder picks a decoder by file extension: WAV natively, MIDI through
// the synthesizer when one is configured, everything else through ffmpeg.
type AutoDecoder struct {
	Wav    WavDecoder
	FFmpeg FFmpegDecoder
	Synth  *SynthDecoder
}

func (a AutoDecoder) pick(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return a.Wav, nil
	case ".mid", ".midi":
		if a.Synth == nil {
			return nil, fmt.Errorf("no soundfont configured to render %v", path)
		}
		return a.Synth, nil
	default:
		return a.FFmpeg, nil
	}
}

func (a AutoDecoder) Duration(ctx context.Context, path string) (float64, error) {
	d, err := a.pick(path)
	if err != nil {
		return 0, err
	}
	return d.Duration(ctx, path)
}

func (a AutoDecoder) Decode(ctx context.Context, path string, sampleRate int, offset, duration float64) (Buffer, error) {
	d, err := a.pick(path)
	if err != nil {
		return nil, err
	}
	return d.Decode(ctx, path, sampleRate, offset, duration)
}
