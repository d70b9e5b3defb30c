package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// removeIndexFile deletes the persisted vector index from a store dir.
func removeIndexFile(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(dir, indexFileName)))
}

func TestValidateUserID(t *testing.T) {
	valid := []string{"alice", "user-42", "a.b_c", "Local"}
	for _, id := range valid {
		assert.NoError(t, ValidateUserID(id), id)
	}

	invalid := []string{"", "../escape", "a/b", `a\b`, ".hidden", "-lead", "user id"}
	for _, id := range invalid {
		assert.Error(t, ValidateUserID(id), id)
	}
}

func TestRegistryReturnsSameStore(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), testDims, 4)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	s1, err := r.Get("alice")
	require.NoError(t, err)
	s2, err := r.Get("alice")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
}

func TestRegistryRejectsInvalidUser(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), testDims, 4)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.Get("../../etc")
	assert.Error(t, err)
}

func TestRegistryIsolatesUsers(t *testing.T) {
	// Given two users indexing near-identical content
	r, err := NewRegistry(t.TempDir(), testDims, 4)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	alice, err := r.Get("alice")
	require.NoError(t, err)
	bob, err := r.Get("bob")
	require.NoError(t, err)

	require.NoError(t, alice.Add(ctx, []Record{testRecord("repo", "alice.py", axis(0))}))
	require.NoError(t, bob.Add(ctx, []Record{testRecord("repo", "bob.py", axis(0))}))

	// When each searches with the same query
	aliceResults, err := alice.Search(ctx, axis(0), "", 10, 3)
	require.NoError(t, err)
	bobResults, err := bob.Search(ctx, axis(0), "", 10, 3)
	require.NoError(t, err)

	// Then neither sees the other's chunks
	require.Len(t, aliceResults, 1)
	assert.Equal(t, "alice.py", aliceResults[0].FilePath)
	require.Len(t, bobResults, 1)
	assert.Equal(t, "bob.py", bobResults[0].FilePath)
}

func TestRegistryClearOnlyAffectsOneUser(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), testDims, 4)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	alice, _ := r.Get("alice")
	bob, _ := r.Get("bob")
	require.NoError(t, alice.Add(ctx, []Record{testRecord("repo", "alice.py", axis(0))}))
	require.NoError(t, bob.Add(ctx, []Record{testRecord("repo", "bob.py", axis(0))}))

	_, err = alice.ClearRepo(ctx, "repo")
	require.NoError(t, err)

	n, err := bob.Count(ctx, "repo")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegistryListsUsersWithData(t *testing.T) {
	// Given two users with stores on disk and one evicted from the cache
	dir := t.TempDir()
	r, err := NewRegistry(dir, testDims, 1)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.Get("alice")
	require.NoError(t, err)
	_, err = r.Get("bob") // evicts alice's open store
	require.NoError(t, err)

	// Then both still appear, sorted
	users, err := r.Users()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestRegistryUsersEmptyDataDir(t *testing.T) {
	r, err := NewRegistry(filepath.Join(t.TempDir(), "unborn"), testDims, 4)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	users, err := r.Users()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRegistryConcurrentGet(t *testing.T) {
	r, err := NewRegistry(t.TempDir(), testDims, 8)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var wg sync.WaitGroup
	stores := make([]*UserStore, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Get("shared")
			assert.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range stores[1:] {
		assert.Same(t, stores[0], s)
	}
}

func TestRegistryEvictionClosesStore(t *testing.T) {
	// Given a registry that keeps only one store open
	r, err := NewRegistry(t.TempDir(), testDims, 1)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	ctx := context.Background()
	alice, err := r.Get("alice")
	require.NoError(t, err)
	require.NoError(t, alice.Add(ctx, []Record{testRecord("repo", "a.py", axis(0))}))

	// When a second user forces eviction
	_, err = r.Get("bob")
	require.NoError(t, err)

	// Then the evicted store is closed...
	err = alice.Add(ctx, []Record{testRecord("repo", "b.py", axis(1))})
	assert.Error(t, err)

	// ...but its data survives and a fresh Get reopens it
	reopened, err := r.Get("alice")
	require.NoError(t, err)
	n, err := reopened.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
