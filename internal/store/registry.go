package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

// userIDPattern restricts user IDs to filesystem-safe names.
var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateUserID rejects IDs that are empty, overly long, or could
// escape the data directory.
func ValidateUserID(userID string) error {
	if !userIDPattern.MatchString(userID) {
		return rwerrors.Newf(rwerrors.ErrCodeInvalidUserID,
			"invalid user id %q: must match %s", userID, userIDPattern.String())
	}
	// Pattern already excludes separators; belt and braces
	if filepath.Base(userID) != userID {
		return rwerrors.Newf(rwerrors.ErrCodeInvalidUserID, "invalid user id %q", userID)
	}
	return nil
}

// Registry hands out per-user stores, creating them on first use.
// Lookup-or-create is atomic: two goroutines asking for the same user
// get the same store. Least-recently-used stores are closed when the
// open-store limit is hit.
type Registry struct {
	dataDir string
	dims    int

	mu    sync.Mutex
	cache *lru.Cache[string, *UserStore]
}

// NewRegistry creates a registry rooted at dataDir holding at most
// maxOpen stores open at once.
func NewRegistry(dataDir string, dims, maxOpen int) (*Registry, error) {
	cache, err := lru.NewWithEvict[string, *UserStore](maxOpen, func(userID string, s *UserStore) {
		slog.Debug("evicting user store", "user", userID)
		if err := s.Close(); err != nil {
			slog.Warn("failed to close evicted store", "user", userID, "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		dataDir: dataDir,
		dims:    dims,
		cache:   cache,
	}, nil
}

// Get returns the store for userID, opening it if needed.
func (r *Registry) Get(userID string) (*UserStore, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache.Get(userID); ok {
		return s, nil
	}

	dir := filepath.Join(r.dataDir, userID)
	s, err := OpenUserStore(dir, userID, r.dims)
	if err != nil {
		return nil, err
	}
	r.cache.Add(userID, s)
	slog.Debug("opened user store", "user", userID, "dir", dir)
	return s, nil
}

// Users returns every user ID with data under the registry's root,
// whether or not their store is currently open.
func (r *Registry) Users() ([]string, error) {
	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rwerrors.Wrap(rwerrors.ErrCodeStoreFailed, err)
	}

	var users []string
	for _, e := range entries {
		if e.IsDir() && ValidateUserID(e.Name()) == nil {
			users = append(users, e.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

// Close closes every open store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, userID := range r.cache.Keys() {
		if s, ok := r.cache.Peek(userID); ok {
			if err := s.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	// Purge fires the evict callback, but Close is idempotent
	r.cache.Purge()
	return firstErr
}
