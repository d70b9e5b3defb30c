// Package search turns a natural language query into ranked chunk results.
// It embeds the query and delegates nearest-neighbor lookup to the caller's
// per-user store.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/repowhisper/repowhisper/internal/config"
	"github.com/repowhisper/repowhisper/internal/embed"
	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
	"github.com/repowhisper/repowhisper/internal/store"
)

// Options controls a single search request.
type Options struct {
	// UserID selects the tenant store. Required.
	UserID string

	// RepoID restricts results to one repository. Empty searches all
	// of the user's repositories.
	RepoID string

	// Limit caps the number of results. Zero uses the configured default.
	Limit int
}

// Searcher executes semantic queries against per-user stores.
type Searcher struct {
	cfg      *config.Config
	embedder embed.Embedder
	registry *store.Registry
}

// New creates a Searcher.
func New(cfg *config.Config, embedder embed.Embedder, registry *store.Registry) *Searcher {
	return &Searcher{cfg: cfg, embedder: embedder, registry: registry}
}

// Search embeds the query and returns ranked results for the user,
// along with the time spent embedding and querying.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]store.SearchResult, time.Duration, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, rwerrors.InvalidInput("query must not be empty", nil)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.Search.MaxResults
	}

	userStore, err := s.registry.Get(opts.UserID)
	if err != nil {
		return nil, 0, err
	}

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, 0, rwerrors.Wrap(rwerrors.ErrCodeEmbeddingFailed, err)
	}

	results, err := userStore.Search(ctx, vec, opts.RepoID, limit, s.cfg.Search.OverFetchFactor)
	if err != nil {
		return nil, 0, rwerrors.Wrap(rwerrors.ErrCodeSearchFailed, err)
	}
	return results, time.Since(start), nil
}
