package store

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
)

// hit is a raw nearest-neighbor result keyed by SQLite rowid.
type hit struct {
	ID       int64
	Distance float32
	Score    float32
}

// vectorIndex wraps an HNSW graph keyed by SQLite rowid. It is not
// safe for concurrent use; UserStore serializes access.
type vectorIndex struct {
	graph *hnsw.Graph[int64]
	dims  int
}

// newVectorIndex creates an empty cosine-distance index.
func newVectorIndex(dims int) *vectorIndex {
	graph := hnsw.NewGraph[int64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	return &vectorIndex{graph: graph, dims: dims}
}

// Add inserts a vector keyed by rowid. The vector is copied and
// normalized for cosine distance.
func (x *vectorIndex) Add(id int64, vector []float32) error {
	if len(vector) != x.dims {
		return ErrDimensionMismatch{Expected: x.dims, Got: len(vector)}
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeVectorInPlace(vec)

	x.graph.Add(hnsw.MakeNode(id, vec))
	return nil
}

// Search returns up to k nearest neighbors with bounded scores.
func (x *vectorIndex) Search(query []float32, k int) ([]hit, error) {
	if len(query) != x.dims {
		return nil, ErrDimensionMismatch{Expected: x.dims, Got: len(query)}
	}
	if x.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeVectorInPlace(normalized)

	nodes := x.graph.Search(normalized, k)

	hits := make([]hit, 0, len(nodes))
	for _, node := range nodes {
		distance := x.graph.Distance(normalized, node.Value)
		hits = append(hits, hit{
			ID:       node.Key,
			Distance: distance,
			Score:    distanceToScore(distance),
		})
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (x *vectorIndex) Len() int {
	return x.graph.Len()
}

// Save persists the graph atomically (temp file + rename).
func (x *vectorIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	if err := x.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}
	return nil
}

// loadVectorIndex reads a persisted graph from disk.
func loadVectorIndex(path string, dims int) (*vectorIndex, error) {
	x := newVectorIndex(dims)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import requires an io.ByteReader
	reader := bufio.NewReader(file)
	if err := x.graph.Import(reader); err != nil {
		return nil, fmt.Errorf("failed to import graph: %w", err)
	}
	return x, nil
}

// ErrDimensionMismatch is returned when a vector doesn't match the
// index dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts cosine distance (0-2) to a similarity score
// clamped to [0, 1].
func distanceToScore(distance float32) float32 {
	score := 1.0 - distance/2.0
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
