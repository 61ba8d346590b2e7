package chunk

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/dataset"
	"github.com/jsphweid/amtdata/model"
	"github.com/jsphweid/amtdata/util"
)

// Store reads back the examples an export wrote to a directory. Indexes of
// examples that failed during export are missing.
type Store struct {
	dir    string
	chunks []model.ChunkOverview
	names  model.ItemNumToName
}

func Open(dir string) (*Store, error) {
	chunks, err := util.ReadBinary[[]model.ChunkOverview](filepath.Join(dir, constants.AllChunksFilename))
	if err != nil {
		return nil, err
	}
	names, err := util.ReadBinary[model.ItemNumToName](filepath.Join(dir, constants.ItemNumToNameFilename))
	if err != nil {
		return nil, err
	}
	return &Store{dir: dir, chunks: chunks, names: names}, nil
}

func (s *Store) Chunks() []model.ChunkOverview {
	return s.chunks
}

// Len counts items exported, including any that failed.
func (s *Store) Len() int {
	return len(s.names)
}

func (s *Store) Get(_ context.Context, index int) (*dataset.Example, error) {
	if index < 0 || index >= s.Len() {
		return nil, fmt.Errorf("%w: %d of %d", dataset.ErrIndexOutOfRange, index, s.Len())
	}
	key := Key(index)
	c, ok := Find(s.chunks, key)
	if ok {
		ex, found, err := ReadExample(filepath.Join(s.dir, c.Filename), key)
		if err != nil {
			return nil, err
		}
		if found {
			return ex, nil
		}
	}
	return nil, fmt.Errorf("example %d (%v) was not exported", index, s.names[uint32(index)])
}
