// Package chunk splits source files into embeddable code chunks.
package chunk

// ChunkType identifies how a chunk was produced.
type ChunkType string

const (
	// ChunkTypeFile is a whole file emitted as a single chunk.
	ChunkTypeFile ChunkType = "file"
	// ChunkTypeBlock is a slice of a file produced by boundary or size splitting.
	ChunkTypeBlock ChunkType = "block"
)

// Chunk is a contiguous run of lines from a source file.
// Line numbers are 1-based and inclusive.
type Chunk struct {
	FilePath  string
	Content   string
	LineStart int
	LineEnd   int
	Type      ChunkType
}

// BoundaryFunc reports whether a line starts a new logical code unit
// (function, class, export, etc).
type BoundaryFunc func(line string) bool
