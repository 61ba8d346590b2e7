package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKeysIsSorted(t *testing.T) {
	m := map[string]int{"b": 1, "c": 2, "a": 3}
	assert.Equal(t, []string{"a", "b", "c"}, GetKeys(m))
}

func TestClamp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0, Clamp(-3, 0, 9))
	assert.Equal(9, Clamp(12, 0, 9))
	assert.Equal(4.5, Clamp(4.5, 0.0, 9.0))
}

func TestSum(t *testing.T) {
	assert.Equal(t, uint64(6), Sum([]int64{1, 2, 3}))
}

func TestBinaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nums.dat")
	in := map[uint32]string{0: "Track00001", 1: "Track00002"}
	require.NoError(t, CreateBinary(path, in))

	out, err := ReadBinary[map[uint32]string](path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadBinaryMissingFile(t *testing.T) {
	_, err := ReadBinary[[]int](filepath.Join(t.TempDir(), "nope.dat"))
	assert.Error(t, err)
}
