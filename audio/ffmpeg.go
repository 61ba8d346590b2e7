package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder shells out to ffmpeg and ffprobe, for FLAC and anything
// else WavDecoder cannot read.
type FFmpegDecoder struct {
	// Path to the ffmpeg binary; ffprobe is looked up next to it.
	Path     string
	Channels int
}

func (d FFmpegDecoder) ffmpeg() string {
	if d.Path == "" {
		return "ffmpeg"
	}
	return d.Path
}

func (d FFmpegDecoder) ffprobe() string {
	return strings.TrimSuffix(d.ffmpeg(), "ffmpeg") + "ffprobe"
}

func (d FFmpegDecoder) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, d.ffprobe(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %v: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	s := strings.TrimSpace(out.String())
	if s == "" {
		return 0, fmt.Errorf("ffprobe %v: no duration", path)
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

func (d FFmpegDecoder) Decode(ctx context.Context, path string, sampleRate int, offset, duration float64) (Buffer, error) {
	chans := d.Channels
	if chans <= 0 {
		chans = 2
	}
	args := []string{
		"-hide_banner", "-v", "error",
		"-ss", strconv.FormatFloat(offset, 'f', -1, 64),
		"-t", strconv.FormatFloat(duration, 'f', -1, 64),
		"-i", path,
		"-ac", strconv.Itoa(chans),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, d.ffmpeg(), args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %v: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	buf, err := deinterleaveF32LE(out.Bytes(), chans)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %v: %w", path, err)
	}
	return FitLength(buf, NumSamples(duration, sampleRate)), nil
}

func deinterleaveF32LE(raw []byte, chans int) (Buffer, error) {
	if len(raw)%(4*chans) != 0 {
		return nil, errors.New("unexpected byte length")
	}
	frames := len(raw) / (4 * chans)
	buf := make(Buffer, chans)
	for c := range buf {
		buf[c] = make([]float32, frames)
	}
	for i := 0; i < frames*chans; i++ {
		buf[i%chans][i/chans] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return buf, nil
}
