// Package index orchestrates the ingest pipeline: discover files, chunk
// them, embed the chunks, and persist everything in the user's store.
package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/repowhisper/repowhisper/internal/allowlist"
	"github.com/repowhisper/repowhisper/internal/chunk"
	"github.com/repowhisper/repowhisper/internal/config"
	"github.com/repowhisper/repowhisper/internal/discover"
	"github.com/repowhisper/repowhisper/internal/embed"
	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
	"github.com/repowhisper/repowhisper/internal/store"
)

// Options describes one indexing run.
type Options struct {
	UserID string
	RepoID string
	Root   string
	Mode   discover.Mode

	// Paths are the manual-mode file paths.
	Paths []string
	// Patterns override the configured guided-mode patterns.
	Patterns []string

	// Fresh clears the repo from the store before indexing.
	Fresh bool
}

// Result summarizes an indexing run.
type Result struct {
	RepoID        string
	FilesScanned  int
	FilesIndexed  int
	ChunksCreated int
	ChunksIndexed int
	Duration      time.Duration
}

// Indexer runs the ingest pipeline.
type Indexer struct {
	cfg      *config.Config
	embedder embed.Embedder
	registry *store.Registry
	chunker  *chunk.Chunker
	allow    *allowlist.Checker
}

// New creates an Indexer. allow may be nil when no allowlist is configured.
func New(cfg *config.Config, embedder embed.Embedder, registry *store.Registry, allow *allowlist.Checker) *Indexer {
	return &Indexer{
		cfg:      cfg,
		embedder: embedder,
		registry: registry,
		chunker:  chunk.NewChunker(cfg.Chunking.MaxChunkSize),
		allow:    allow,
	}
}

// RepoIDFromPath derives a stable repo identifier from an absolute path.
// Used when the caller doesn't name the repo explicitly. The same path
// always yields the same ID (name-based UUID), so re-indexing targets
// the same repo partition.
func RepoIDFromPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("repowhisper://"+abs))
	return filepath.Base(abs) + "-" + id.String()[:8]
}

// IndexRepo discovers, chunks, embeds, and stores a repository.
func (ix *Indexer) IndexRepo(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	if opts.RepoID == "" {
		opts.RepoID = RepoIDFromPath(opts.Root)
	}

	if ix.allow != nil {
		if err := ix.allow.Check(opts.Root); err != nil {
			return nil, err
		}
	}

	userStore, err := ix.registry.Get(opts.UserID)
	if err != nil {
		return nil, err
	}

	if opts.Fresh {
		removed, err := userStore.ClearRepo(ctx, opts.RepoID)
		if err != nil {
			return nil, err
		}
		slog.Debug("cleared repo before re-index", "repo", opts.RepoID, "removed", removed)
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = ix.cfg.Discovery.GuidedPatterns
	}

	files, err := discover.Discover(discover.Options{
		Root:          opts.Root,
		Mode:          opts.Mode,
		Paths:         opts.Paths,
		Patterns:      patterns,
		Extensions:    ix.cfg.Discovery.FullExtensions,
		MaxFileSizeKB: ix.cfg.Discovery.MaxFileSizeKB,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{RepoID: opts.RepoID, FilesScanned: len(files)}

	chunks, filesIndexed, err := ix.chunkFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	result.FilesIndexed = filesIndexed
	result.ChunksCreated = len(chunks)

	if len(chunks) == 0 {
		result.Duration = time.Since(started)
		slog.Info("indexing produced no chunks", "repo", opts.RepoID, "files_scanned", len(files))
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, rwerrors.Wrap(rwerrors.ErrCodeEmbeddingFailed, err)
	}

	recs := make([]store.Record, len(chunks))
	for i, ch := range chunks {
		recs[i] = store.Record{
			RepoID:    opts.RepoID,
			FilePath:  ch.FilePath,
			Content:   ch.Content,
			LineStart: ch.LineStart,
			LineEnd:   ch.LineEnd,
			ChunkType: string(ch.Type),
			Vector:    vectors[i],
		}
	}

	if err := userStore.Add(ctx, recs); err != nil {
		return nil, err
	}
	result.ChunksIndexed = len(recs)
	result.Duration = time.Since(started)

	slog.Info("indexing complete",
		"user", opts.UserID,
		"repo", opts.RepoID,
		"files_scanned", result.FilesScanned,
		"files_indexed", result.FilesIndexed,
		"chunks_indexed", result.ChunksIndexed,
		"duration", result.Duration)
	return result, nil
}

// chunkFiles chunks files concurrently, preserving a stable output order.
func (ix *Indexer) chunkFiles(ctx context.Context, files []string) ([]chunk.Chunk, int, error) {
	workers := ix.cfg.Performance.IndexWorkers
	if workers <= 0 {
		workers = 1
	}

	var mu sync.Mutex
	perFile := make(map[string][]chunk.Chunk, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			chunks := ix.chunker.ChunkFile(file)
			if len(chunks) == 0 {
				return nil
			}
			mu.Lock()
			perFile[file] = chunks
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	// Deterministic order: files sorted, chunks in file order
	ordered := make([]string, 0, len(perFile))
	for file := range perFile {
		ordered = append(ordered, file)
	}
	sort.Strings(ordered)

	var all []chunk.Chunk
	for _, file := range ordered {
		all = append(all, perFile[file]...)
	}
	return all, len(perFile), nil
}
