package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/pedal"
)

const sustainController = 64

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = fmt.Errorf("panic parsing %v: %v", filepath, r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("could not read midi file: %w", err)
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return nil, fmt.Errorf("could not parse midi file %v: %w", filepath, err)
	}
	return res, nil
}

type eventKind int

// at equal times, ends sort before pedal changes before starts
const (
	noteOff eventKind = iota
	pedalChange
	noteOn
)

type reducedEvent struct {
	Time     float64
	Kind     eventKind
	Key      uint8
	Velocity uint8
	Down     bool
}

type openNote struct {
	onset    float64
	velocity uint8
}

// Reader reads single tracks and beat grids from SMF files on disk.
type Reader struct{}

func (Reader) ReadTrack(path string) (model.Track, error) {
	s, err := ReadMidiFile(path)
	if err != nil {
		return model.Track{}, err
	}
	return ToTrack(s), nil
}

func (Reader) ReadBeats(path string) ([]float64, []float64, error) {
	s, err := ReadMidiFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Beats(s)
}

// ToTrack flattens every track of s into one note and pedal list, times in
// seconds. Note-ons that are never released are dropped.
func ToTrack(s *smf.SMF) model.Track {
	track := model.Track{Program: -1}
	var reducedEvents []reducedEvent
	var horizon float64

	for _, events := range s.Tracks {
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			absTime := float64(s.TimeAt(absTicks)) / 1e6
			if absTime > horizon {
				horizon = absTime
			}
			var channel, key, velocity, controller, value, program uint8
			var name string
			switch {
			case event.Message.GetNoteStart(&channel, &key, &velocity):
				reducedEvents = append(reducedEvents, reducedEvent{Time: absTime, Kind: noteOn, Key: key, Velocity: velocity})
			case event.Message.GetNoteEnd(&channel, &key):
				reducedEvents = append(reducedEvents, reducedEvent{Time: absTime, Kind: noteOff, Key: key})
			case event.Message.GetControlChange(&channel, &controller, &value):
				if controller == sustainController {
					reducedEvents = append(reducedEvents, reducedEvent{Time: absTime, Kind: pedalChange, Down: value >= 64})
				}
			case event.Message.GetProgramChange(&channel, &program):
				if track.Program < 0 {
					track.Program = int(program)
				}
			case event.Message.GetMetaTrackName(&name):
				if track.ID == "" {
					track.ID = name
				}
			}
		}
	}

	sort.SliceStable(reducedEvents, func(i, j int) bool {
		if reducedEvents[i].Time != reducedEvents[j].Time {
			return reducedEvents[i].Time < reducedEvents[j].Time
		}
		return reducedEvents[i].Kind < reducedEvents[j].Kind
	})

	pressed := make(map[uint8][]openNote)
	// note-offs that found nothing open, by the time they happened
	unmatched := make(map[uint8]float64)
	var pedals []pedal.Event
	for _, evt := range reducedEvents {
		switch evt.Kind {
		case noteOn:
			if t, ok := unmatched[evt.Key]; ok && t == evt.Time {
				// on and off on the same tick: a zero-length note, dropped
				delete(unmatched, evt.Key)
				continue
			}
			pressed[evt.Key] = append(pressed[evt.Key], openNote{onset: evt.Time, velocity: evt.Velocity})
		case noteOff:
			open := pressed[evt.Key]
			if len(open) == 0 {
				unmatched[evt.Key] = evt.Time
				continue
			}
			track.Notes = append(track.Notes, model.NoteEvent{
				Onset:    open[0].onset,
				Offset:   evt.Time,
				Pitch:    int(evt.Key),
				Velocity: int(open[0].velocity),
			})
			pressed[evt.Key] = open[1:]
		case pedalChange:
			pedals = append(pedals, pedal.Event{Time: evt.Time, Down: evt.Down})
		}
	}

	sort.SliceStable(track.Notes, func(i, j int) bool {
		if track.Notes[i].Onset != track.Notes[j].Onset {
			return track.Notes[i].Onset < track.Notes[j].Onset
		}
		return track.Notes[i].Pitch < track.Notes[j].Pitch
	})
	track.Pedals = pedal.Pair(pedals, horizon)
	return track
}

type timeSig struct {
	tick       int64
	num, denom int64
}

// Beats returns beat and downbeat times in seconds, from the time
// signatures of s (4/4 until the first one) up to its last event.
func Beats(s *smf.SMF) ([]float64, []float64, error) {
	tpq, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, nil, errors.New("beats need a metric time format")
	}
	quarter := int64(tpq.Ticks4th())

	sigs := []timeSig{{tick: 0, num: 4, denom: 4}}
	var lastTick int64
	for _, events := range s.Tracks {
		var absTicks int64
		for _, event := range events {
			absTicks += int64(event.Delta)
			if absTicks > lastTick {
				lastTick = absTicks
			}
			var num, denom, cpt, dsqpq uint8
			if event.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq) && num > 0 && denom > 0 {
				sigs = append(sigs, timeSig{tick: absTicks, num: int64(num), denom: int64(denom)})
			}
		}
	}
	// a later signature at the same tick replaces the earlier one
	sort.SliceStable(sigs, func(i, j int) bool {
		return sigs[i].tick < sigs[j].tick
	})

	var beats, downbeats []float64
	idx := 0
	var beatInBar int64
	for tick := int64(0); tick <= lastTick; {
		for idx+1 < len(sigs) && sigs[idx+1].tick <= tick {
			idx++
			tick = sigs[idx].tick
			beatInBar = 0
		}
		sig := sigs[idx]
		t := float64(s.TimeAt(tick)) / 1e6
		beats = append(beats, t)
		if beatInBar == 0 {
			downbeats = append(downbeats, t)
		}
		step := quarter * 4 / sig.denom
		if step <= 0 {
			return nil, nil, fmt.Errorf("bad time signature %d/%d", sig.num, sig.denom)
		}
		tick += step
		beatInBar = (beatInBar + 1) % sig.num
	}
	return beats, downbeats, nil
}
