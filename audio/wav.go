package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

var errNoFormat = errors.New("wav header has no channels or sample rate")

// WavDecoder reads PCM WAV files without external tools.
type WavDecoder struct{}

func openWav(path string) (*os.File, *wav.Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, nil, fmt.Errorf("%v is not a valid wav file", path)
	}
	return f, dec, nil
}

func (WavDecoder) Duration(_ context.Context, path string) (float64, error) {
	f, dec, err := openWav(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	// the riff header duration counts header bytes as audio
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("could not find pcm data in %v: %w", path, err)
	}
	bytesPerFrame := int(dec.NumChans) * ((int(dec.BitDepth)-1)/8 + 1)
	if bytesPerFrame <= 0 || dec.SampleRate == 0 {
		return 0, errNoFormat
	}
	return float64(dec.PCMSize/bytesPerFrame) / float64(dec.SampleRate), nil
}

func (WavDecoder) Decode(_ context.Context, path string, sampleRate int, offset, duration float64) (Buffer, error) {
	f, dec, err := openWav(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chans := int(dec.NumChans)
	if chans == 0 || dec.SampleRate == 0 {
		return nil, errNoFormat
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", path, err)
	}
	scale := float32(math.Exp2(float64(dec.BitDepth) - 1))

	frames := len(pcm.Data) / chans
	full := make(Buffer, chans)
	for c := range full {
		full[c] = make([]float32, frames)
	}
	for i := 0; i < frames*chans; i++ {
		full[i%chans][i/chans] = float32(pcm.Data[i]) / scale
	}
	return Resample(full, int(dec.SampleRate), sampleRate, offset, duration), nil
}
