package constants

import "os"

// GetChunksDir is where export writes chunk files.
func GetChunksDir() string {
	path := os.Getenv("CHUNKS_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// GetDatasetRoot returns DATASET_ROOT, or fallback when unset.
func GetDatasetRoot(fallback string) string {
	path := os.Getenv("DATASET_ROOT")
	if path != "" {
		return path
	}
	return fallback
}

const AllChunksFilename = "allChunks.dat"

const ItemNumToNameFilename = "itemNumToName.dat"

// chunk files roll over once their data section passes this size
const PreferredChunkSize = 64 * 1024 * 1024

const (
	DefaultSampleRate   = 44100
	DefaultClipDuration = 10.0
	DefaultEndPad       = 9.9
	DefaultFPS          = 100
	DefaultPitchesNum   = 128
)
