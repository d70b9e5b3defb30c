package mcp

// SearchCodeInput defines the input schema for the search_code tool.
type SearchCodeInput struct {
	Query  string `json:"query" jsonschema:"the code search query to execute"`
	UserID string `json:"user_id,omitempty" jsonschema:"tenant identifier, defaults to the server user"`
	RepoID string `json:"repo_id,omitempty" jsonschema:"restrict results to one repository"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchCodeOutput defines the output schema for the search_code tool.
type SearchCodeOutput struct {
	Results   []SearchResultOutput `json:"results" jsonschema:"ranked list of matching chunks"`
	LatencyMS float64              `json:"latency_ms" jsonschema:"embed plus lookup time in milliseconds"`
}

// SearchResultOutput is a single ranked chunk match.
type SearchResultOutput struct {
	RepoID    string  `json:"repo_id" jsonschema:"repository the chunk belongs to"`
	FilePath  string  `json:"file_path" jsonschema:"absolute path of the source file"`
	Content   string  `json:"content" jsonschema:"matched chunk content"`
	LineStart int     `json:"line_start" jsonschema:"first line of the chunk, 1-based"`
	LineEnd   int     `json:"line_end" jsonschema:"last line of the chunk, inclusive"`
	Score     float64 `json:"score" jsonschema:"relevance score between 0 and 1"`
}

// IndexRepoInput defines the input schema for the index_repo tool.
type IndexRepoInput struct {
	Root     string   `json:"root" jsonschema:"absolute path of the repository root"`
	UserID   string   `json:"user_id,omitempty" jsonschema:"tenant identifier, defaults to the server user"`
	RepoID   string   `json:"repo_id,omitempty" jsonschema:"repository identifier, derived from the root path if empty"`
	Mode     string   `json:"mode,omitempty" jsonschema:"discovery mode: manual, guided, or full (default)"`
	Paths    []string `json:"paths,omitempty" jsonschema:"explicit file list for manual mode"`
	Patterns []string `json:"patterns,omitempty" jsonschema:"glob patterns for guided mode"`
	Fresh    bool     `json:"fresh,omitempty" jsonschema:"clear existing chunks for the repository before indexing"`
}

// IndexRepoOutput defines the output schema for the index_repo tool.
type IndexRepoOutput struct {
	RepoID        string `json:"repo_id"`
	FilesScanned  int    `json:"files_scanned"`
	FilesIndexed  int    `json:"files_indexed"`
	ChunksIndexed int    `json:"chunks_indexed"`
	DurationMS    int64  `json:"duration_ms"`
}

// ClearRepoInput defines the input schema for the clear_repo tool.
type ClearRepoInput struct {
	RepoID string `json:"repo_id" jsonschema:"repository identifier to remove"`
	UserID string `json:"user_id,omitempty" jsonschema:"tenant identifier, defaults to the server user"`
}

// ClearRepoOutput defines the output schema for the clear_repo tool.
type ClearRepoOutput struct {
	RepoID        string `json:"repo_id"`
	ChunksRemoved int    `json:"chunks_removed"`
}

// IndexStatusInput defines the input schema for the index_status tool.
type IndexStatusInput struct {
	UserID string `json:"user_id,omitempty" jsonschema:"tenant identifier, defaults to the server user"`
}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	UserID     string          `json:"user_id"`
	Repos      []RepoStatus    `json:"repos"`
	TotalCount int             `json:"total_chunks"`
	Embeddings EmbeddingStatus `json:"embeddings"`
}

// RepoStatus is the per-repository chunk count.
type RepoStatus struct {
	RepoID     string `json:"repo_id"`
	ChunkCount int    `json:"chunk_count"`
}

// EmbeddingStatus reports the active embedding backend. Clients can use
// this to decide whether semantic quality is degraded.
type EmbeddingStatus struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Available  bool   `json:"available"`
}

// AdviseInput defines the input schema for the advise tool.
type AdviseInput struct {
	Transcript   string   `json:"transcript" jsonschema:"meeting transcript or discussion text"`
	CodeSnippets []string `json:"code_snippets,omitempty" jsonschema:"relevant code snippets for context"`
}

// AdviseOutput defines the output schema for the advise tool.
type AdviseOutput struct {
	Points []AdvicePoint `json:"points" jsonschema:"suggested talking points"`
}

// AdvicePoint is a single suggested talking point.
type AdvicePoint struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}
