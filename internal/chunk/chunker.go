package chunk

import (
	"log/slog"
	"os"
	"strings"
)

// Chunker splits files into chunks no larger than roughly MaxSize characters.
type Chunker struct {
	// MaxSize is the soft character limit per chunk. Files at or under
	// this size become a single chunk.
	MaxSize int
	// Boundary decides where a split is allowed. Nil means DefaultBoundary.
	Boundary BoundaryFunc
}

// NewChunker creates a Chunker with the given soft size limit.
func NewChunker(maxSize int) *Chunker {
	return &Chunker{MaxSize: maxSize, Boundary: DefaultBoundary}
}

// ChunkFile reads and chunks a file. Unreadable files are logged and
// produce no chunks rather than failing the whole indexing run.
func (c *Chunker) ChunkFile(path string) []Chunk {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("failed to read file, skipping", "path", path, "error", err)
		return nil
	}
	return c.ChunkContent(path, string(data))
}

// ChunkContent chunks already-loaded file content.
//
// Files at or under MaxSize become a single whole-file chunk. Larger files
// are split at declaration boundaries once a chunk reaches 70% of MaxSize;
// a boundary line always starts the next chunk. Boundary-free text is
// hard-split at twice MaxSize so a single chunk can never grow unbounded.
// Whitespace-only chunks are dropped.
func (c *Chunker) ChunkContent(path, content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	if len(content) <= c.MaxSize {
		return []Chunk{{
			FilePath:  path,
			Content:   content,
			LineStart: 1,
			LineEnd:   strings.Count(content, "\n") + 1,
			Type:      ChunkTypeFile,
		}}
	}

	boundary := c.Boundary
	if boundary == nil {
		boundary = DefaultBoundary
	}

	splitAt := int(0.7 * float64(c.MaxSize))
	hardCap := 2 * c.MaxSize

	lines := strings.Split(content, "\n")
	var chunks []Chunk
	var cur []string
	curLen := 0
	start := 1 // 1-based line number of the first line in cur

	flush := func(end int) {
		text := strings.Join(cur, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				FilePath:  path,
				Content:   text,
				LineStart: start,
				LineEnd:   end,
				Type:      ChunkTypeBlock,
			})
		}
		cur = nil
		curLen = 0
	}

	for i, line := range lines {
		lineNo := i + 1

		// A declaration boundary closes the current chunk once it is
		// large enough; the boundary line itself starts the next chunk.
		// The length test counts the boundary line even though the line
		// is excluded from the chunk being closed.
		if len(cur) > 0 && curLen+len(line)+1 >= splitAt && boundary(line) {
			flush(lineNo - 1)
			start = lineNo
		}

		cur = append(cur, line)
		curLen += len(line) + 1

		// Hard cap for boundary-free runs: close the chunk including
		// this line so progress is always made.
		if curLen >= hardCap {
			flush(lineNo)
			start = lineNo + 1
		}
	}

	if len(cur) > 0 {
		flush(len(lines))
	}

	return chunks
}
