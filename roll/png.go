package roll

import (
	"io"

	"github.com/fogleman/gg"
)

// RenderPNG draws the grid with time left to right and low pitches at the
// bottom. Each cell is scale pixels wide and tall.
func (g *FrameGrid) RenderPNG(w io.Writer, scale int) error {
	if scale < 1 {
		scale = 1
	}
	frames, pitches := g.NumFrames(), g.NumPitches()
	s := float64(scale)
	dc := gg.NewContext(frames*scale, pitches*scale)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for f := 0; f < frames; f++ {
		if g.PedalFrames.AtVec(f) > 0 {
			dc.DrawRectangle(float64(f)*s, 0, s, float64(pitches)*s)
			dc.SetRGB(0.93, 0.93, 1)
			dc.Fill()
		}
	}
	for f := 0; f < frames; f++ {
		for p := 0; p < pitches; p++ {
			y := float64(pitches-1-p) * s
			switch {
			case g.Onsets.At(f, p) > 0:
				dc.SetRGB(0.85, 0.2, 0)
			case g.Frames.At(f, p) > 0:
				v := g.Velocities.At(f, p)
				dc.SetRGB(0.6*(1-v), 0.6*(1-v), 0.6*(1-v))
			default:
				continue
			}
			dc.DrawRectangle(float64(f)*s, y, s, s)
			dc.Fill()
		}
	}
	return dc.EncodePNG(w)
}
