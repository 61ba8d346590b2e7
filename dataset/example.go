// Package dataset assembles training examples: a cropped audio window and
// the symbolic target restricted to the same window.
package dataset

import (
	"github.com/jsphweid/amtdata/audio"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/roll"
)

// Example is built fresh for every Get. All times are seconds relative to
// StartTime, except StartTime itself which is relative to the recording.
type Example struct {
	DatasetName string
	Name        string
	AudioPath   string
	MidiPath    string

	Audio      audio.Buffer
	SampleRate int
	StartTime  float64
	Duration   float64
	Question   string

	Beats     []float64
	Downbeats []float64
	// Tracks holds the clipped (and pedal extended) events of every track.
	Tracks []model.Track
	// Roll is set for piano_roll targets, Rolls for multitrack targets.
	Roll  *roll.FrameGrid
	Rolls []roll.TrackGrid
}

func (e *Example) Window() model.TimeWindow {
	return model.TimeWindow{Start: e.StartTime, Duration: e.Duration}
}

// Summarize is the JSON view served by the inspection API.
func (e *Example) Summarize(index int) model.ExampleResponse {
	res := model.ExampleResponse{
		Index:       index,
		DatasetName: e.DatasetName,
		AudioPath:   e.AudioPath,
		StartTime:   e.StartTime,
		Duration:    e.Duration,
		Question:    e.Question,
		Channels:    e.Audio.NumChannels(),
		Samples:     e.Audio.NumSamples(),
		NumBeats:    len(e.Beats),
		Tracks:      []model.TrackSummary{},
	}
	if e.Roll != nil {
		res.Frames = e.Roll.NumFrames()
	} else if len(e.Rolls) > 0 {
		res.Frames = e.Rolls[0].Grid.NumFrames()
	}
	for _, t := range e.Tracks {
		res.Tracks = append(res.Tracks, model.TrackSummary{
			ID:        t.ID,
			InstClass: t.InstClass,
			IsDrum:    t.IsDrum,
			NumNotes:  len(t.Notes),
			NumPedals: len(t.Pedals),
		})
	}
	return res
}
