package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repowhisper/repowhisper/internal/allowlist"
	"github.com/repowhisper/repowhisper/internal/config"
	"github.com/repowhisper/repowhisper/internal/discover"
	"github.com/repowhisper/repowhisper/internal/embed"
	"github.com/repowhisper/repowhisper/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.Performance.IndexWorkers = 2
	return cfg
}

func testIndexer(t *testing.T, cfg *config.Config) (*Indexer, *store.Registry) {
	t.Helper()
	embedder := embed.NewStaticEmbedder()
	registry, err := store.NewRegistry(cfg.DataDir, embedder.Dimensions(), cfg.Performance.MaxUserStores)
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close() })
	return New(cfg, embedder, registry, nil), registry
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestIndexRepoEndToEnd(t *testing.T) {
	// Given a small repo
	repo := writeRepo(t, map[string]string{
		"auth.py":  "def authenticate(user, password):\n    return check_credentials(user, password)\n",
		"db.py":    "def connect_database(dsn):\n    return open_connection(dsn)\n",
		"empty.py": "",
	})

	cfg := testConfig(t)
	ix, registry := testIndexer(t, cfg)

	// When we index it in full mode
	result, err := ix.IndexRepo(context.Background(), Options{
		UserID: "alice",
		RepoID: "myrepo",
		Root:   repo,
		Mode:   discover.ModeFull,
	})
	require.NoError(t, err)

	// Then files were scanned and chunks stored
	assert.Equal(t, 3, result.FilesScanned)
	assert.Equal(t, 2, result.FilesIndexed)
	assert.Equal(t, 2, result.ChunksIndexed)

	// And the content is searchable
	s, err := registry.Get("alice")
	require.NoError(t, err)
	embedder := embed.NewStaticEmbedder()
	query, err := embedder.Embed(context.Background(), "authenticate user password credentials")
	require.NoError(t, err)

	results, err := s.Search(context.Background(), query, "myrepo", 2, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].FilePath, "auth.py")
}

func TestIndexRepoMissingRoot(t *testing.T) {
	cfg := testConfig(t)
	ix, _ := testIndexer(t, cfg)

	_, err := ix.IndexRepo(context.Background(), Options{
		UserID: "alice",
		RepoID: "r",
		Root:   filepath.Join(t.TempDir(), "gone"),
		Mode:   discover.ModeFull,
	})
	assert.Error(t, err)
}

func TestIndexRepoFreshClearsOldChunks(t *testing.T) {
	repo := writeRepo(t, map[string]string{
		"main.py": "def main():\n    run()\n",
	})

	cfg := testConfig(t)
	ix, registry := testIndexer(t, cfg)
	ctx := context.Background()

	opts := Options{UserID: "alice", RepoID: "r", Root: repo, Mode: discover.ModeFull}
	_, err := ix.IndexRepo(ctx, opts)
	require.NoError(t, err)
	_, err = ix.IndexRepo(ctx, opts)
	require.NoError(t, err)

	s, err := registry.Get("alice")
	require.NoError(t, err)
	n, err := s.Count(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "append-only indexing duplicates chunks")

	// Fresh re-index replaces instead of appending
	opts.Fresh = true
	_, err = ix.IndexRepo(ctx, opts)
	require.NoError(t, err)

	n, err = s.Count(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexRepoManualMode(t *testing.T) {
	repo := writeRepo(t, map[string]string{
		"keep.py": "def keep():\n    pass\n",
		"skip.py": "def skip():\n    pass\n",
	})

	cfg := testConfig(t)
	ix, _ := testIndexer(t, cfg)

	result, err := ix.IndexRepo(context.Background(), Options{
		UserID: "alice",
		RepoID: "r",
		Root:   repo,
		Mode:   discover.ModeManual,
		Paths:  []string{"keep.py"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesScanned)
	assert.Equal(t, 1, result.ChunksIndexed)
}

func TestIndexRepoAllowlistEnforced(t *testing.T) {
	repo := writeRepo(t, map[string]string{"main.py": "def main(): pass\n"})

	allowlistPath := filepath.Join(t.TempDir(), "allow.json")
	require.NoError(t, os.WriteFile(allowlistPath,
		[]byte(`{"allowed_directories": ["/nonexistent/allowed"]}`), 0o644))

	cfg := testConfig(t)
	embedder := embed.NewStaticEmbedder()
	registry, err := store.NewRegistry(cfg.DataDir, embedder.Dimensions(), 4)
	require.NoError(t, err)
	defer func() { _ = registry.Close() }()

	ix := New(cfg, embedder, registry, allowlist.Load(allowlistPath))

	_, err = ix.IndexRepo(context.Background(), Options{
		UserID: "alice",
		RepoID: "r",
		Root:   repo,
		Mode:   discover.ModeFull,
	})
	assert.Error(t, err)
}

func TestRepoIDFromPathStable(t *testing.T) {
	a := RepoIDFromPath("/home/dev/project")
	b := RepoIDFromPath("/home/dev/project")
	c := RepoIDFromPath("/home/dev/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "project-")
}
