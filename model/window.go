package model

// TimeWindow is the crop [Start, Start+Duration) in seconds.
type TimeWindow struct {
	Start    float64
	Duration float64
}

func (w TimeWindow) End() float64 {
	return w.Start + w.Duration
}
