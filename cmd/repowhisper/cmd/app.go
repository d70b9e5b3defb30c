package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/repowhisper/repowhisper/internal/advise"
	"github.com/repowhisper/repowhisper/internal/allowlist"
	"github.com/repowhisper/repowhisper/internal/config"
	"github.com/repowhisper/repowhisper/internal/embed"
	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
	"github.com/repowhisper/repowhisper/internal/index"
	"github.com/repowhisper/repowhisper/internal/search"
	"github.com/repowhisper/repowhisper/internal/store"
)

// app wires the configuration into the collaborators the commands share.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	registry *store.Registry
	indexer  *index.Indexer
	searcher *search.Searcher
	allow    *allowlist.Checker
}

// newApp loads configuration from dir and builds the pipeline.
// The embedding backend is warmed up here so dimension problems
// surface before any files are touched.
func newApp(ctx context.Context, dir string) (*app, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	return newAppWithConfig(ctx, cfg)
}

// newAppWithConfig builds the pipeline from an already-loaded config.
func newAppWithConfig(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := store.NewRegistry(cfg.DataDir, embedder.Dimensions(), cfg.Performance.MaxUserStores)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	var allow *allowlist.Checker
	if cfg.Security.AllowlistFile != "" {
		allow = allowlist.Load(cfg.Security.AllowlistFile)
	}

	return &app{
		cfg:      cfg,
		embedder: embedder,
		registry: registry,
		indexer:  index.New(cfg, embedder, registry, allow),
		searcher: search.New(cfg, embedder, registry),
		allow:    allow,
	}, nil
}

// buildEmbedder constructs the configured embedding backend behind an
// LRU cache.
func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	var inner embed.Embedder

	switch cfg.Embeddings.Provider {
	case "static":
		inner = embed.NewStaticEmbedder()
	case "ollama":
		e, err := embed.NewOllamaEmbedder(ctx, embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
			BatchSize:  cfg.Embeddings.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, rwerrors.Newf(rwerrors.ErrCodeConfigInvalid,
			"unknown embeddings provider: %s", cfg.Embeddings.Provider)
	}

	cached, err := embed.NewCachedEmbedder(inner, cfg.Performance.EmbedCacheSize)
	if err != nil {
		_ = inner.Close()
		return nil, err
	}
	return cached, nil
}

// advisor builds the configured meeting advisor.
func (a *app) advisor() *advise.Advisor {
	timeout, err := time.ParseDuration(a.cfg.Advisor.Timeout)
	if err != nil {
		timeout = 30 * time.Second
	}
	host := a.cfg.Advisor.OllamaHost
	if host == "" {
		host = a.cfg.Embeddings.OllamaHost
	}
	return advise.New(advise.Config{
		Enabled:   a.cfg.Advisor.Enabled,
		Model:     a.cfg.Advisor.Model,
		ServerURL: host,
		Timeout:   timeout,
	})
}

// Close releases the store registry and the embedder.
func (a *app) Close() {
	if err := a.registry.Close(); err != nil {
		slog.Warn("registry close failed", "error", err)
	}
	if err := a.embedder.Close(); err != nil {
		slog.Warn("embedder close failed", "error", err)
	}
}
