package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

const (
	chunksDBName  = "chunks.db"
	indexFileName = "vectors.hnsw"
)

// UserStore is the isolated store for a single user. All mutations take
// the exclusive lock, so searches never observe a half-rebuilt index.
type UserStore struct {
	userID    string
	dir       string
	indexPath string

	mu     sync.RWMutex
	db     *recordsDB
	index  *vectorIndex
	dims   int
	closed bool
}

// OpenUserStore opens (or creates) the store for userID under dir.
// A missing or corrupt vector index is rebuilt from the embeddings
// persisted in SQLite.
func OpenUserStore(dir, userID string, dims int) (*UserStore, error) {
	db, err := openRecordsDB(filepath.Join(dir, chunksDBName))
	if err != nil {
		return nil, rwerrors.Wrap(rwerrors.ErrCodeStoreFailed, err)
	}

	s := &UserStore{
		userID:    userID,
		dir:       dir,
		indexPath: filepath.Join(dir, indexFileName),
		db:        db,
		dims:      dims,
	}

	if _, err := os.Stat(s.indexPath); err == nil {
		index, err := loadVectorIndex(s.indexPath, dims)
		if err != nil {
			slog.Warn("vector index corrupt, rebuilding from database",
				"user", userID, "path", s.indexPath, "error", err)
		} else {
			s.index = index
		}
	}

	if s.index == nil {
		if err := s.rebuildIndex(context.Background(), ""); err != nil {
			_ = db.Close()
			return nil, rwerrors.Wrap(rwerrors.ErrCodeCorruptIndex, err)
		}
	}

	slog.Debug("user store opened", "user", userID, "vectors", s.index.Len())
	return s, nil
}

// rebuildIndex replaces the in-memory index with one built from the
// persisted embeddings, optionally excluding one repo. Caller holds the
// write lock (or is the constructor).
func (s *UserStore) rebuildIndex(ctx context.Context, excludeRepoID string) error {
	recs, err := s.db.allWithVectors(ctx, excludeRepoID)
	if err != nil {
		return err
	}

	index := newVectorIndex(s.dims)
	for _, rec := range recs {
		if err := index.Add(rec.ID, rec.Vector); err != nil {
			return fmt.Errorf("rebuild failed at chunk %d: %w", rec.ID, err)
		}
	}
	s.index = index
	return nil
}

// Add persists records and indexes their vectors. The user ID on each
// record is overwritten with the store's own user.
func (s *UserStore) Add(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for i := range recs {
		recs[i].UserID = s.userID
		if len(recs[i].Vector) != s.dims {
			return rwerrors.Newf(rwerrors.ErrCodeDimensionMismatch,
				"chunk vector has %d dimensions, store expects %d", len(recs[i].Vector), s.dims)
		}
	}

	ids, err := s.db.insert(ctx, recs)
	if err != nil {
		return rwerrors.Wrap(rwerrors.ErrCodeStoreFailed, err)
	}

	for i, id := range ids {
		if err := s.index.Add(id, recs[i].Vector); err != nil {
			return rwerrors.Wrap(rwerrors.ErrCodeStoreFailed, err)
		}
	}

	if err := s.index.Save(s.indexPath); err != nil {
		// Rows are durable; the index rebuilds on next open
		slog.Warn("failed to persist vector index", "user", s.userID, "error", err)
	}
	return nil
}

// Search returns the top results for the query vector, filtered to the
// store's user and (when repoID is non-empty) a single repo. The ANN
// layer is over-fetched so tenant filtering still fills the limit.
func (s *UserStore) Search(ctx context.Context, query []float32, repoID string, limit, overFetch int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		return nil, rwerrors.InvalidInput("search limit must be positive", nil)
	}
	if overFetch <= 0 {
		overFetch = 3
	}

	hits, err := s.index.Search(query, limit*overFetch)
	if err != nil {
		return nil, rwerrors.Wrap(rwerrors.ErrCodeSearchFailed, err)
	}
	if len(hits) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	recs, err := s.db.getByIDs(ctx, ids)
	if err != nil {
		return nil, rwerrors.Wrap(rwerrors.ErrCodeSearchFailed, err)
	}

	results := make([]SearchResult, 0, limit)
	for _, h := range hits {
		rec, ok := recs[h.ID]
		if !ok {
			// Stale graph entry whose row was removed; skip
			continue
		}
		if rec.UserID != s.userID {
			continue
		}
		if repoID != "" && rec.RepoID != repoID {
			continue
		}
		results = append(results, SearchResult{
			RepoID:    rec.RepoID,
			FilePath:  rec.FilePath,
			Content:   rec.Content,
			LineStart: rec.LineStart,
			LineEnd:   rec.LineEnd,
			Score:     h.Score,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// ClearRepo removes one repo from the store. The surviving rows keep
// their rowids; the vector index is rebuilt from them and swapped in
// under the write lock. If any step fails, the whole user store is
// dropped as a last resort so no stale repo data can be served.
func (s *UserStore) ClearRepo(ctx context.Context, repoID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	if err := s.rebuildIndex(ctx, repoID); err != nil {
		return s.dropAll(ctx, repoID, err)
	}

	removed, err := s.db.deleteRepo(ctx, repoID)
	if err != nil {
		return s.dropAll(ctx, repoID, err)
	}

	if err := s.index.Save(s.indexPath); err != nil {
		slog.Warn("failed to persist vector index after clear", "user", s.userID, "error", err)
	}

	slog.Info("cleared repo",
		"user", s.userID, "repo", repoID,
		"chunks_removed", removed, "vectors_remaining", s.index.Len())
	return int(removed), nil
}

// dropAll is the destructive clear fallback: every row and vector for
// this user is removed, not just the requested repo.
func (s *UserStore) dropAll(ctx context.Context, repoID string, cause error) (int, error) {
	slog.Error("repo clear failed, dropping ALL data for user as fallback",
		"user", s.userID, "repo", repoID, "error", cause)

	if err := s.db.deleteAll(ctx); err != nil {
		return 0, rwerrors.Wrap(rwerrors.ErrCodeStoreFailed, err)
	}
	s.index = newVectorIndex(s.dims)
	if err := s.index.Save(s.indexPath); err != nil {
		slog.Warn("failed to persist empty vector index", "user", s.userID, "error", err)
	}
	return 0, nil
}

// Count returns the number of stored chunks, optionally for one repo.
func (s *UserStore) Count(ctx context.Context, repoID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}
	return s.db.count(ctx, repoID)
}

// Repos returns the distinct repo IDs this user has indexed.
func (s *UserStore) Repos(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	return s.db.repoIDs(ctx)
}

// UserID returns the owning user.
func (s *UserStore) UserID() string {
	return s.userID
}

// Close persists the index and closes the database.
func (s *UserStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.index.Save(s.indexPath); err != nil {
		slog.Warn("failed to persist vector index on close", "user", s.userID, "error", err)
	}
	return s.db.Close()
}
