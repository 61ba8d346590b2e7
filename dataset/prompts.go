package dataset

import "math/rand/v2"

var Questions = []string{
	"Music transcription.",
	"Convert audio music into MIDI data format.",
	"Transcribe music recordings into MIDI note sequences.",
	"Automatically generate MIDI file from audio music.",
	"Extract music elements and convert to MIDI notes.",
}

// RandomQuestion picks one of Questions from r on every call.
func RandomQuestion(r *rand.Rand) func() string {
	return func() string {
		return Questions[r.IntN(len(Questions))]
	}
}
