// Package chunk packs exported examples into chunk files. A chunk file is a
// little endian uint32 index length, the gob encoded index (key to byte
// range of the data section) and the data section of gob encoded examples.
package chunk

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jsphweid/amtdata/constants"
	"github.com/jsphweid/amtdata/dataset"
	"github.com/jsphweid/amtdata/model"
)

// Key is the index key of the example at index. Keys sort in index order.
func Key(index int) string {
	return fmt.Sprintf("%08d", index)
}

// Writer collects examples and writes a chunk once the pending data passes
// its size limit. Keys must be added in ascending order.
type Writer struct {
	dir    string
	limit  int
	keys   []string
	data   [][]byte
	size   int
	chunks []model.ChunkOverview
}

func NewWriter(dir string) *Writer {
	return NewWriterSize(dir, constants.PreferredChunkSize)
}

func NewWriterSize(dir string, limit int) *Writer {
	return &Writer{dir: dir, limit: limit}
}

func (w *Writer) Add(key string, ex *dataset.Example) error {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(ex); err != nil {
		return fmt.Errorf("could not encode example %v: %w", key, err)
	}
	w.keys = append(w.keys, key)
	w.data = append(w.data, buf.Bytes())
	// each index entry is about the key plus two uint32s
	w.size += buf.Len() + len(key) + 8
	if w.size > w.limit {
		return w.Flush()
	}
	return nil
}

// Flush writes everything pending as one chunk.
func (w *Writer) Flush() error {
	if len(w.keys) == 0 {
		return nil
	}
	c, err := makeChunk(w.dir, w.keys, w.data)
	if err != nil {
		return err
	}
	w.chunks = append(w.chunks, c)
	w.keys, w.data, w.size = nil, nil, 0
	return nil
}

// Close flushes and returns an overview of every chunk written.
func (w *Writer) Close() ([]model.ChunkOverview, error) {
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return w.chunks, nil
}

func makeChunk(dir string, sortedKeys []string, data [][]byte) (model.ChunkOverview, error) {
	c := model.ChunkOverview{
		Filename: uuid.New().String() + ".dat",
		Start:    sortedKeys[0],
		End:      sortedKeys[len(sortedKeys)-1],
		Count:    len(sortedKeys),
	}

	chunkIndex := make(model.ChunkIndex)
	dataBuf := new(bytes.Buffer)
	for i, key := range sortedKeys {
		start := uint32(dataBuf.Len())
		dataBuf.Write(data[i])
		chunkIndex[key] = model.Pair{Start: start, End: uint32(dataBuf.Len())}
	}

	indexBuf := new(bytes.Buffer)
	if err := gob.NewEncoder(indexBuf).Encode(chunkIndex); err != nil {
		return c, fmt.Errorf("could not encode chunk index: %w", err)
	}

	var finalBytes []byte
	finalBytes = binary.LittleEndian.AppendUint32(finalBytes, uint32(indexBuf.Len()))
	finalBytes = append(finalBytes, indexBuf.Bytes()...)
	finalBytes = append(finalBytes, dataBuf.Bytes()...)

	filename := filepath.Join(dir, c.Filename)
	if err := os.WriteFile(filename, finalBytes, 0666); err != nil {
		return c, fmt.Errorf("write failed for chunk file: %w", err)
	}
	return c, nil
}

// ReadIndex reads the index at the start of a chunk file and returns it with
// its encoded length. r is left at the start of the data section.
func ReadIndex(r io.Reader) (model.ChunkIndex, uint32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, fmt.Errorf("could not read index length: %w", err)
	}
	indexLength := binary.LittleEndian.Uint32(buf)

	buf = make([]byte, indexLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, fmt.Errorf("could not read index: %w", err)
	}
	var index model.ChunkIndex
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&index); err != nil {
		return nil, 0, fmt.Errorf("could not decode index: %w", err)
	}
	return index, indexLength, nil
}

// ReadExample reads the example stored under key. found is false when the
// chunk has no such key.
func ReadExample(path, key string) (ex *dataset.Example, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("could not open chunk: %w", err)
	}
	defer f.Close()

	index, _, err := ReadIndex(f)
	if err != nil {
		return nil, false, fmt.Errorf("%v: %w", path, err)
	}
	val, ok := index[key]
	if !ok {
		return nil, false, nil
	}
	// the reader sits at the start of the data section
	if _, err := f.Seek(int64(val.Start), io.SeekCurrent); err != nil {
		return nil, false, fmt.Errorf("could not seek in %v: %w", path, err)
	}
	ex = new(dataset.Example)
	r := io.LimitReader(f, int64(val.End-val.Start))
	if err := gob.NewDecoder(r).Decode(ex); err != nil {
		return nil, false, fmt.Errorf("could not decode %v in %v: %w", key, path, err)
	}
	return ex, true, nil
}

// Find returns the chunk whose key range holds key.
func Find(chunks []model.ChunkOverview, key string) (model.ChunkOverview, bool) {
	for _, c := range chunks {
		if key >= c.Start && key <= c.End {
			return c, true
		}
	}
	return model.ChunkOverview{}, false
}
