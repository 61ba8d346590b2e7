package dataset

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/jsphweid/amtdata/audio"
	"github.com/jsphweid/amtdata/config"
	"github.com/jsphweid/amtdata/crop"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/pedal"
	"github.com/jsphweid/amtdata/roll"
)

type fakeDecoder struct {
	duration    float64
	durationErr error
	decodeErr   error

	offset, length float64
}

func (f *fakeDecoder) Duration(context.Context, string) (float64, error) {
	return f.duration, f.durationErr
}

func (f *fakeDecoder) Decode(_ context.Context, _ string, sampleRate int, offset, duration float64) (audio.Buffer, error) {
	if f.decodeErr != nil {
		return nil, f.decodeErr
	}
	f.offset, f.length = offset, duration
	n := audio.NumSamples(duration, sampleRate)
	left, right := make([]float32, n), make([]float32, n)
	for i := range left {
		left[i], right[i] = 1, 0
	}
	return audio.Buffer{left, right}, nil
}

type fakeLoader struct {
	target Target
	err    error
	calls  int
}

func (f *fakeLoader) Load(context.Context, model.Item) (Target, error) {
	f.calls++
	return f.target, f.err
}

func newAssembler(dec audio.Decoder, selector *crop.Selector, kind string) *Assembler {
	return &Assembler{
		Selector:    selector,
		Decoder:     dec,
		SampleRate:  100,
		Mono:        true,
		LoadTarget:  true,
		ExtendPedal: true,
		Policy:      pedal.ClampToNextOnset,
		Kind:        kind,
		Roll:        roll.Config{FPS: 10, Pitches: 128},
		Question:    func() string { return Questions[0] },
	}
}

var item = model.Item{Name: "Track00001", AudioPath: "mix.flac", MidiPath: "all_src.mid"}

func TestAssembleFullWindow(t *testing.T) {
	dec := &fakeDecoder{duration: 5}
	loader := &fakeLoader{target: Target{
		Tracks: []model.Track{{
			ID:     "S00",
			Notes:  []model.NoteEvent{{Onset: 1, Offset: 2, Pitch: 60, Velocity: 100}},
			Pedals: []model.PedalInterval{{Onset: 1.5, Offset: 3}},
		}},
		Beats:     []float64{0, 0.5, 1, 5.5},
		Downbeats: []float64{0, 2},
	}}
	a := newAssembler(dec, crop.Full(), config.KindPianoRoll)

	ex, err := a.Assemble(context.Background(), item, loader)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(model.TimeWindow{Start: 0, Duration: 5}, ex.Window())
	assert.Equal(1, ex.Audio.NumChannels())
	assert.Equal(500, ex.Audio.NumSamples())
	assert.InDelta(0.5, ex.Audio[0][0], 1e-6)
	assert.Equal(Questions[0], ex.Question)
	assert.Equal([]float64{0, 0.5, 1}, ex.Beats)
	assert.Equal([]float64{0, 2}, ex.Downbeats)

	require.Len(t, ex.Tracks, 1)
	require.Len(t, ex.Tracks[0].Notes, 1)
	// the pedal holds the note until 3
	assert.Equal(3.0, ex.Tracks[0].Notes[0].Offset)

	require.NotNil(t, ex.Roll)
	assert.Equal(50, ex.Roll.NumFrames())
	assert.Equal(1.0, ex.Roll.Onsets.At(10, 60))
	assert.Equal(1.0, ex.Roll.Frames.At(29, 60))
	assert.Nil(ex.Rolls)
}

func TestAssembleCropsTargetToAudioWindow(t *testing.T) {
	dec := &fakeDecoder{duration: 60}
	notes := make([]model.NoteEvent, 0, 60)
	for i := 0; i < 60; i++ {
		notes = append(notes, model.NoteEvent{Onset: float64(i), Offset: float64(i) + 0.5, Pitch: 40 + i%20, Velocity: 90})
	}
	loader := &fakeLoader{target: Target{Tracks: []model.Track{{ID: "S00", Notes: notes}}}}
	a := newAssembler(dec, crop.NewSelector(10, 0, 7), config.KindEvents)

	ex, err := a.Assemble(context.Background(), item, loader)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(10.0, ex.Duration)
	assert.Equal(ex.StartTime, dec.offset)
	assert.Equal(ex.Duration, dec.length)
	assert.Equal(1000, ex.Audio.NumSamples())
	assert.Nil(ex.Roll)
	assert.NotEmpty(ex.Tracks[0].Notes)
	for _, n := range ex.Tracks[0].Notes {
		assert.GreaterOrEqual(n.Onset, 0.0)
		assert.LessOrEqual(n.Offset, ex.Duration)
		assert.Less(n.Onset, n.Offset)
	}
}

// seedStartingAfter finds a seed whose first 10 s crop of 60 s starts at or
// after start.
func seedStartingAfter(t *testing.T, start float64) (uint64, model.TimeWindow) {
	t.Helper()
	for seed := uint64(1); seed < 1000; seed++ {
		w, err := crop.Select(crop.NewRand(seed), 60, 10, 0)
		require.NoError(t, err)
		if w.Start >= start {
			return seed, w
		}
	}
	t.Fatal("no seed found")
	return 0, model.TimeWindow{}
}

func TestAssembleExtendsBeforeClipping(t *testing.T) {
	seed, w := seedStartingAfter(t, 2)
	target := Target{Tracks: []model.Track{{
		ID:     "S00",
		Notes:  []model.NoteEvent{{Onset: w.Start - 2, Offset: w.Start - 1, Pitch: 60, Velocity: 90}},
		Pedals: []model.PedalInterval{{Onset: w.Start - 1.5, Offset: w.Start + 2}},
	}}}

	a := newAssembler(&fakeDecoder{duration: 60}, crop.NewSelector(10, 0, seed), config.KindEvents)
	ex, err := a.Assemble(context.Background(), item, &fakeLoader{target: target})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(w, ex.Window())
	require.Len(t, ex.Tracks, 1)
	require.Len(t, ex.Tracks[0].Notes, 1)
	assert.Equal(0.0, ex.Tracks[0].Notes[0].Onset)
	assert.InDelta(2.0, ex.Tracks[0].Notes[0].Offset, 1e-9)

	a = newAssembler(&fakeDecoder{duration: 60}, crop.NewSelector(10, 0, seed), config.KindEvents)
	a.ExtendPedal = false
	ex, err = a.Assemble(context.Background(), item, &fakeLoader{target: target})
	require.NoError(t, err)
	require.Len(t, ex.Tracks, 1)
	assert.Empty(ex.Tracks[0].Notes)
}

func TestAssembleMultitrack(t *testing.T) {
	dec := &fakeDecoder{duration: 2}
	loader := &fakeLoader{target: Target{Tracks: []model.Track{
		{ID: "S00", InstClass: "Piano", Notes: []model.NoteEvent{{Onset: 0, Offset: 1, Pitch: 60, Velocity: 80}}},
		{ID: "S01", InstClass: "Bass", Notes: []model.NoteEvent{{Onset: 1, Offset: 2, Pitch: 40, Velocity: 80}}},
	}}}
	a := newAssembler(dec, crop.Full(), config.KindMultitrack)

	ex, err := a.Assemble(context.Background(), item, loader)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Nil(ex.Roll)
	require.Len(t, ex.Rolls, 2)
	assert.Equal(roll.TrackKey{ID: "S01", InstClass: "Bass"}, ex.Rolls[1].Key)
	assert.Equal(0.0, ex.Rolls[0].Grid.Frames.At(15, 40))
	assert.Equal(1.0, ex.Rolls[1].Grid.Frames.At(15, 40))
}

func TestAssembleWithoutTarget(t *testing.T) {
	loader := &fakeLoader{}
	a := newAssembler(&fakeDecoder{duration: 3}, crop.Full(), config.KindPianoRoll)
	a.LoadTarget = false

	ex, err := a.Assemble(context.Background(), item, loader)
	require.NoError(t, err)
	assert.Equal(t, 0, loader.calls)
	assert.Nil(t, ex.Tracks)
	assert.Nil(t, ex.Roll)
}

func TestAssembleFailsWhole(t *testing.T) {
	boom := errors.New("boom")
	malformed := Target{Tracks: []model.Track{{ID: "S00", Notes: []model.NoteEvent{{Onset: 2, Offset: 1, Pitch: 60}}}}}

	cases := map[string]struct {
		dec    *fakeDecoder
		loader *fakeLoader
		want   error
	}{
		"duration":  {&fakeDecoder{durationErr: boom}, &fakeLoader{}, boom},
		"empty":     {&fakeDecoder{duration: 0}, &fakeLoader{}, model.ErrEmptyWindow},
		"decode":    {&fakeDecoder{duration: 5, decodeErr: boom}, &fakeLoader{}, boom},
		"target":    {&fakeDecoder{duration: 5}, &fakeLoader{err: model.ErrMissingStem}, model.ErrMissingStem},
		"malformed": {&fakeDecoder{duration: 5}, &fakeLoader{target: malformed}, model.ErrMalformedEvent},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			a := newAssembler(c.dec, crop.NewSelector(2, 0, 1), config.KindPianoRoll)
			ex, err := a.Assemble(context.Background(), item, c.loader)
			assert.ErrorIs(t, err, c.want)
			assert.Nil(t, ex)
		})
	}
}

func TestDatasetGet(t *testing.T) {
	d := &Dataset{
		Name:      NameSlakh2100,
		Items:     []model.Item{item},
		Assembler: newAssembler(&fakeDecoder{duration: 30}, crop.NewSelector(10, 0, 3), config.KindEvents),
		Targets:   &fakeLoader{},
	}
	assert := assert.New(t)
	assert.Equal(1, d.Len())

	ex, err := d.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(NameSlakh2100, ex.DatasetName)
	assert.Equal("Track00001", ex.Name)

	_, err = d.Get(context.Background(), 1)
	assert.ErrorIs(err, ErrIndexOutOfRange)
	_, err = d.Get(context.Background(), -1)
	assert.ErrorIs(err, ErrIndexOutOfRange)
}

func TestDatasetWithSeedIsReproducible(t *testing.T) {
	d := &Dataset{
		Name:      NameSlakh2100,
		Items:     []model.Item{item},
		Assembler: newAssembler(&fakeDecoder{duration: 300}, crop.NewSelector(10, 0, 3), config.KindEvents),
	}
	a, b := d.WithSeed(11), d.WithSeed(11)
	for i := 0; i < 5; i++ {
		ea, err := a.Get(context.Background(), 0)
		require.NoError(t, err)
		eb, err := b.Get(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, ea.StartTime, eb.StartTime)
		assert.Equal(t, ea.Question, eb.Question)
	}
}

type fakeMidi struct {
	tracks map[string]model.Track
}

func (f fakeMidi) ReadTrack(path string) (model.Track, error) {
	t, ok := f.tracks[filepath.Base(path)]
	if !ok {
		return model.Track{}, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return t, nil
}

func (f fakeMidi) ReadBeats(string) ([]float64, []float64, error) {
	return []float64{0, 0.5}, []float64{0}, nil
}

const slakhMetadata = `stems:
  S00:
    inst_class: Piano
    is_drum: false
    midi_saved: true
    plugin_name: grand_piano.nkm
    program_num: 0
  S01:
    inst_class: Drums
    is_drum: true
    midi_saved: true
    plugin_name: drums.nkm
    program_num: 128
  S02:
    inst_class: Strings
    is_drum: false
    midi_saved: false
    plugin_name: strings.nkm
    program_num: 48
  S03:
    inst_class: Bass
    is_drum: false
    midi_saved: true
    plugin_name: bass.nkm
    program_num: 33
`

func writeSlakhSong(t *testing.T) model.Item {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "train", "Track00001")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(slakhMetadata), 0o644))
	return model.Item{
		Name:      "Track00001",
		AudioPath: filepath.Join(dir, "mix.flac"),
		MidiPath:  filepath.Join(dir, "all_src.mid"),
		Split:     "train",
	}
}

func slakhMidi() fakeMidi {
	return fakeMidi{tracks: map[string]model.Track{
		"S00.mid": {Program: -1, Notes: []model.NoteEvent{{Onset: 0, Offset: 1, Pitch: 60, Velocity: 90}}},
		// S01 has no MIDI file on disk
		"S03.mid": {Program: 34, Notes: []model.NoteEvent{{Onset: 0, Offset: 1, Pitch: 40, Velocity: 90}}},
	}}
}

func TestSlakhTargetsSkipsMissingStem(t *testing.T) {
	it := writeSlakhSong(t)
	var logs bytes.Buffer
	ctx := log.WithContext(context.Background(), log.New(&logs))

	target, err := SlakhTargets{Midi: slakhMidi(), Missing: config.MissingSkip}.Load(ctx, it)
	require.NoError(t, err)

	assert := assert.New(t)
	require.Len(t, target.Tracks, 2)
	assert.Equal("S00", target.Tracks[0].ID)
	assert.Equal("Piano", target.Tracks[0].InstClass)
	assert.Equal(0, target.Tracks[0].Program)
	assert.Equal("grand_piano.nkm", target.Tracks[0].Meta.PluginName)
	assert.Equal("S03", target.Tracks[1].ID)
	assert.Equal(34, target.Tracks[1].Program)
	assert.Equal([]float64{0, 0.5}, target.Beats)
	assert.Contains(logs.String(), "skipping stem")
	assert.Contains(logs.String(), "S01")
}

func TestSlakhTargetsFailsOnMissingStem(t *testing.T) {
	it := writeSlakhSong(t)

	_, err := SlakhTargets{Midi: slakhMidi(), Missing: config.MissingFail}.Load(context.Background(), it)
	assert.ErrorIs(t, err, model.ErrMissingStem)
}

func TestGuitarSetTargets(t *testing.T) {
	m := fakeMidi{tracks: map[string]model.Track{
		"00_take.mid": {Notes: []model.NoteEvent{{Onset: 0, Offset: 1, Pitch: 52}}},
	}}
	target, err := GuitarSetTargets{Midi: m}.Load(context.Background(), model.Item{Name: "00_take", MidiPath: "/gs/data/00_take.mid"})
	require.NoError(t, err)
	require.Len(t, target.Tracks, 1)
	assert.Equal(t, "00_take", target.Tracks[0].ID)
	assert.Equal(t, "Guitar", target.Tracks[0].InstClass)

	_, err = GuitarSetTargets{Midi: m}.Load(context.Background(), model.Item{MidiPath: "/gs/data/01_take.mid"})
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRandomQuestion(t *testing.T) {
	q := RandomQuestion(crop.NewRand(1))
	for i := 0; i < 20; i++ {
		assert.Contains(t, Questions, q())
	}
}

func TestSummarize(t *testing.T) {
	ex := &Example{
		DatasetName: NameSlakh2100,
		Audio:       audio.Buffer{make([]float32, 10)},
		Duration:    1,
		Beats:       []float64{0, 0.5},
		Tracks:      []model.Track{{ID: "S00", Notes: make([]model.NoteEvent, 3)}},
	}
	res := ex.Summarize(4)

	assert := assert.New(t)
	assert.Equal(4, res.Index)
	assert.Equal(1, res.Channels)
	assert.Equal(10, res.Samples)
	assert.Equal(2, res.NumBeats)
	assert.Equal(0, res.Frames)
	assert.Equal([]model.TrackSummary{{ID: "S00", NumNotes: 3}}, res.Tracks)
}

func writeGuitarSet(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "metadata.csv"),
		[]byte("File Path,Midi_file_path\n00_take_mix.wav,00_take.mid\n05_take_mix.wav,05_take.mid\n"), 0o644))

	// 3 s of silence at 8 kHz
	f, err := os.Create(filepath.Join(data, "00_take_mix.wav"))
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 8000, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 8000},
		Data:           make([]int, 24000),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	// 120 bpm, 480 ticks per quarter: E3 from 0.5 s to 1 s
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(480, midi.NoteOn(0, 52, 100))
	tr.Add(480, midi.NoteOff(0, 52))
	tr.Close(0)
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	require.NoError(t, s.Add(tr))
	require.NoError(t, s.WriteFile(filepath.Join(data, "00_take.mid")))
	return root
}

func TestOpenGuitarSet(t *testing.T) {
	c := config.Default()
	c.Dataset = config.DatasetGuitarSet
	c.Root = writeGuitarSet(t)
	c.SampleRate = 8000
	c.Crop.Enabled = false
	c.Audio.Decoder = config.DecoderWav
	require.NoError(t, c.Validate())

	d, err := Open(context.Background(), c, 1)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(NameGuitarSet, d.Name)
	require.Equal(t, 1, d.Len())

	ex, err := d.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(3.0, ex.Duration, 1e-9)
	assert.Equal(24000, ex.Audio.NumSamples())
	require.Len(t, ex.Tracks, 1)
	require.Len(t, ex.Tracks[0].Notes, 1)
	assert.InDelta(0.5, ex.Tracks[0].Notes[0].Onset, 1e-9)
	require.NotNil(t, ex.Roll)
	assert.Equal(300, ex.Roll.NumFrames())
	assert.Equal(1.0, ex.Roll.Onsets.At(50, 52))
}

func TestNewDecoder(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDecoder(config.Audio{Decoder: config.DecoderWav})
	require.NoError(t, err)
	assert.IsType(audio.WavDecoder{}, d)

	d, err = NewDecoder(config.Audio{Decoder: config.DecoderFFmpeg, FFmpegPath: "/usr/bin/ffmpeg"})
	require.NoError(t, err)
	assert.Equal(audio.FFmpegDecoder{Path: "/usr/bin/ffmpeg"}, d)

	d, err = NewDecoder(config.Audio{Decoder: config.DecoderAuto})
	require.NoError(t, err)
	assert.IsType(audio.AutoDecoder{}, d)

	_, err = NewDecoder(config.Audio{Decoder: config.DecoderSynth, SoundFont: "/missing.sf2"})
	assert.Error(err)
}
