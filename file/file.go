package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jsphweid/amtdata/model"
)

const (
	guitarSetAudioColumn = "File Path"
	guitarSetMidiColumn  = "Midi_file_path"
	// GuitarSet has no official split; player 05 is held out for test
	guitarSetTestPrefix = "05"
)

func CreateItemNumMap(items []model.Item) model.ItemNumToName {
	res := make(model.ItemNumToName)
	for i, v := range items {
		res[uint32(i)] = v.Name
	}
	return res
}

// ListSlakh returns one item per song directory under root/split, in name
// order.
func ListSlakh(root, split string) ([]model.Item, error) {
	dir := filepath.Join(root, split)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list %v: %w", dir, err)
	}
	var items []model.Item
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prefix := filepath.Join(dir, e.Name())
		items = append(items, model.Item{
			Name:      e.Name(),
			AudioPath: filepath.Join(prefix, "mix.flac"),
			MidiPath:  filepath.Join(prefix, "all_src.mid"),
			Split:     split,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items, nil
}

type slakhMetadata struct {
	Stems map[string]model.StemMeta `yaml:"stems"`
}

// ReadSlakhMetadata reads the stems of a song's metadata.yaml, sorted by stem
// name.
func ReadSlakhMetadata(path string) ([]model.StemMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	defer f.Close()

	var meta slakhMetadata
	if err := yaml.NewDecoder(f).Decode(&meta); err != nil {
		return nil, fmt.Errorf("could not decode %v: %w", path, err)
	}
	var stems []model.StemMeta
	for name, stem := range meta.Stems {
		stem.Name = name
		stems = append(stems, stem)
	}
	sort.Slice(stems, func(i, j int) bool {
		return stems[i].Name < stems[j].Name
	})
	return stems, nil
}

// ReadGuitarSet reads root/metadata.csv and keeps the rows of split. Paths
// in the csv are relative to root/data.
func ReadGuitarSet(root, split string) ([]model.Item, error) {
	path := filepath.Join(root, "metadata.csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %v: %w", path, err)
	}
	defer f.Close()
	return parseGuitarSet(f, root, split)
}

func parseGuitarSet(r io.Reader, root, split string) ([]model.Item, error) {
	rd := csv.NewReader(r)
	header, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read csv header: %w", err)
	}
	audioCol, midiCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case guitarSetAudioColumn:
			audioCol = i
		case guitarSetMidiColumn:
			midiCol = i
		}
	}
	if audioCol < 0 || midiCol < 0 {
		return nil, fmt.Errorf("csv needs %q and %q columns", guitarSetAudioColumn, guitarSetMidiColumn)
	}

	var items []model.Item
	for {
		row, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read csv row: %w", err)
		}
		name := row[audioCol]
		if strings.HasPrefix(name, guitarSetTestPrefix) != (split == "test") {
			continue
		}
		items = append(items, model.Item{
			Name:      strings.TrimSuffix(name, filepath.Ext(name)),
			AudioPath: filepath.Join(root, "data", name),
			MidiPath:  filepath.Join(root, "data", row[midiCol]),
			Split:     split,
		})
	}
	return items, nil
}
