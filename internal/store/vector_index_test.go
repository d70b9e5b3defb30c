package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 0, 3.75}
	decoded, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)
}

func TestDecodeVectorRejectsBadLength(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDistanceToScoreBounds(t *testing.T) {
	assert.Equal(t, float32(1), distanceToScore(0))
	assert.Equal(t, float32(0.5), distanceToScore(1))
	assert.Equal(t, float32(0), distanceToScore(2))
	// Out-of-range distances clamp instead of escaping [0,1]
	assert.Equal(t, float32(1), distanceToScore(-0.1))
	assert.Equal(t, float32(0), distanceToScore(2.5))
}

func TestVectorIndexSearchRanksNearest(t *testing.T) {
	x := newVectorIndex(4)
	require.NoError(t, x.Add(1, []float32{1, 0, 0, 0}))
	require.NoError(t, x.Add(2, []float32{0, 1, 0, 0}))
	require.NoError(t, x.Add(3, []float32{0.9, 0.1, 0, 0}))

	hits, err := x.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, int64(1), hits[0].ID)
	assert.Equal(t, int64(3), hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, float32(0))
		assert.LessOrEqual(t, h.Score, float32(1))
	}
}

func TestVectorIndexEmptySearch(t *testing.T) {
	x := newVectorIndex(4)
	hits, err := x.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndexDimensionMismatch(t *testing.T) {
	x := newVectorIndex(4)
	assert.Error(t, x.Add(1, []float32{1, 0}))
	_, err := x.Search([]float32{1, 0}, 1)
	assert.Error(t, err)
}

func TestVectorIndexSaveLoad(t *testing.T) {
	// Given a populated index saved to disk
	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	x := newVectorIndex(4)
	require.NoError(t, x.Add(10, []float32{1, 0, 0, 0}))
	require.NoError(t, x.Add(20, []float32{0, 0, 1, 0}))
	require.NoError(t, x.Save(path))

	// When we load it back
	loaded, err := loadVectorIndex(path, 4)
	require.NoError(t, err)

	// Then search behaves identically
	assert.Equal(t, 2, loaded.Len())
	hits, err := loaded.Search([]float32{0, 0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(20), hits[0].ID)
}

func TestLoadVectorIndexMissingFile(t *testing.T) {
	_, err := loadVectorIndex(filepath.Join(t.TempDir(), "absent.hnsw"), 4)
	assert.Error(t, err)
}
