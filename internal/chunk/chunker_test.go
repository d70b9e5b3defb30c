package chunk

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBoundary(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"def handle_request(req):", true},
		{"async def fetch():", true},
		{"    def inner():", true},
		{"class Indexer:", true},
		{"func main() {", true},
		{"@objc func tapped() {", true},
		{"function render() {", true},
		{"const handler = (req) => {", true},
		{"export default App", true},
		{"import os", true},
		{"", false},
		{"    x = 1", false},
		{"# def commented_out", false},
		{"undefined = True", false},
		{"return func()", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultBoundary(tt.line), "line: %q", tt.line)
		})
	}
}

func TestChunkSmallFileIsSingleChunk(t *testing.T) {
	// Given a file well under the size limit
	content := "def hello():\n    return 1\n\ndef world():\n    return 2\n"
	c := NewChunker(1000)

	// When we chunk it
	chunks := c.ChunkContent("small.py", content)

	// Then it becomes one whole-file chunk covering every line
	require.Len(t, chunks, 1)
	assert.Equal(t, ChunkTypeFile, chunks[0].Type)
	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, 1, chunks[0].LineStart)
	assert.Equal(t, strings.Count(content, "\n")+1, chunks[0].LineEnd)
}

func TestChunkEmptyContent(t *testing.T) {
	c := NewChunker(1000)
	assert.Empty(t, c.ChunkContent("empty.py", ""))
	assert.Empty(t, c.ChunkContent("blank.py", "\n\n   \n\t\n"))
}

func TestChunkFileUnreadable(t *testing.T) {
	c := NewChunker(1000)
	chunks := c.ChunkFile(filepath.Join(t.TempDir(), "missing.py"))
	assert.Empty(t, chunks)
}

func TestChunkSplitsAtBoundaries(t *testing.T) {
	// Given a file over the limit built from several functions
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "def handler_%d(payload):\n", i)
		for j := 0; j < 10; j++ {
			fmt.Fprintf(&b, "    value_%d = transform(payload, %d)\n", j, j)
		}
		b.WriteString("\n")
	}
	content := b.String()
	require.Greater(t, len(content), 1000)

	c := NewChunker(1000)
	chunks := c.ChunkContent("handlers.py", content)

	// Then we get multiple block chunks
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, ch := range chunks {
		assert.Equal(t, ChunkTypeBlock, ch.Type)
		assert.Less(t, len(ch.Content), 2*1000)
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
	}

	// And every chunk after the first starts on a declaration line
	for _, ch := range chunks[1:] {
		firstLine := strings.SplitN(ch.Content, "\n", 2)[0]
		assert.True(t, DefaultBoundary(firstLine), "chunk should start at a boundary: %q", firstLine)
	}
}

func TestChunkLineRangesCoverFile(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "def fn_%d():\n", i)
		for j := 0; j < 8; j++ {
			fmt.Fprintf(&b, "    step_%d()\n", j)
		}
	}
	content := strings.TrimSuffix(b.String(), "\n")
	lines := strings.Split(content, "\n")

	c := NewChunker(300)
	chunks := c.ChunkContent("cover.py", content)
	require.NotEmpty(t, chunks)

	// Ranges are contiguous, in order, and cover the whole file
	assert.Equal(t, 1, chunks[0].LineStart)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].LineEnd+1, chunks[i].LineStart)
	}
	assert.Equal(t, len(lines), chunks[len(chunks)-1].LineEnd)

	// Content matches the claimed line range
	for _, ch := range chunks {
		want := strings.Join(lines[ch.LineStart-1:ch.LineEnd], "\n")
		assert.Equal(t, want, ch.Content)
	}
}

func TestChunkHardCapOnBoundaryFreeText(t *testing.T) {
	// Given a long file with no declaration boundaries at all
	line := strings.Repeat("x", 40)
	content := strings.Repeat(line+"\n", 200)
	c := NewChunker(100)

	chunks := c.ChunkContent("blob.txt", content)

	// Then the hard cap still splits it into bounded chunks
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Content), 2*100+len(line))
	}
}

func TestChunkBoundaryCountsItsOwnLength(t *testing.T) {
	// Given a buffer just under the split threshold when a boundary
	// arrives: 54 chars buffered, threshold 70, boundary line 27
	filler := "# " + strings.Repeat("x", 24)
	decl := "def next_section(payload):"
	content := filler + "\n" + filler + "\n" + decl + "\n    return transform(payload)\n"

	c := NewChunker(100)
	require.Greater(t, len(content), c.MaxSize)
	chunks := c.ChunkContent("sections.py", content)

	// Then the boundary splits because its own length crosses the
	// threshold, and the declaration starts the second chunk
	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].LineEnd)
	assert.Equal(t, 3, chunks[1].LineStart)
	assert.True(t, strings.HasPrefix(chunks[1].Content, decl))
}

func TestChunkBoundaryRequiresMinimumSize(t *testing.T) {
	// Given boundaries every few lines but a generous limit
	var b strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, "def tiny_%d():\n    pass\n", i)
	}
	// Pad past MaxSize so splitting engages at all
	b.WriteString(strings.Repeat("# padding line\n", 100))
	content := b.String()

	c := NewChunker(len(content) - 1)
	chunks := c.ChunkContent("tiny.py", content)

	// Then early boundaries do not split because chunks were still
	// under 70% of the limit
	assert.Len(t, chunks, 1)
}
