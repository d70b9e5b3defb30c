// Package store persists embedded code chunks and serves vector search.
//
// Each user gets an isolated store directory holding a SQLite database
// (chunk text, tenant metadata, and the raw embedding) and an HNSW graph
// keyed by SQLite rowid. Persisting embeddings in SQLite lets the graph
// be rebuilt wholesale, which is how repo clearing works: the HNSW
// structure has no efficient native delete.
package store

// Record is a stored chunk with its embedding.
type Record struct {
	ID        int64
	UserID    string
	RepoID    string
	FilePath  string
	Content   string
	LineStart int
	LineEnd   int
	ChunkType string
	Vector    []float32
}

// SearchResult is a ranked chunk returned from semantic search.
type SearchResult struct {
	RepoID    string  `json:"repo_id"`
	FilePath  string  `json:"file_path"`
	Content   string  `json:"content"`
	LineStart int     `json:"line_start"`
	LineEnd   int     `json:"line_end"`
	Score     float32 `json:"score"`
}
