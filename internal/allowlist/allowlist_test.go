package allowlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

func writeAllowlist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "allowlist.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckAllowsContainedPaths(t *testing.T) {
	allowed := t.TempDir()
	c := Load(writeAllowlist(t, `{"allowed_directories": ["`+allowed+`"]}`))

	assert.NoError(t, c.Check(allowed))
	assert.NoError(t, c.Check(filepath.Join(allowed, "project", "src")))
}

func TestCheckRejectsOutsidePaths(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	c := Load(writeAllowlist(t, `{"allowed_directories": ["`+allowed+`"]}`))

	err := c.Check(other)
	require.Error(t, err)
	assert.Equal(t, "ERR_404_PATH_NOT_ALLOWED", rwerrors.CodeOf(err))

	// The error carries the resolved path for diagnostics
	var coded *rwerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.NotEmpty(t, coded.Details["resolved_path"])
}

func TestCheckRejectsPrefixSiblings(t *testing.T) {
	// /tmp/x/base-evil must not pass because /tmp/x/base is allowed
	parent := t.TempDir()
	allowed := filepath.Join(parent, "base")
	require.NoError(t, os.MkdirAll(allowed, 0o755))
	sibling := filepath.Join(parent, "base-evil")
	require.NoError(t, os.MkdirAll(sibling, 0o755))

	c := Load(writeAllowlist(t, `{"allowed_directories": ["`+allowed+`"]}`))
	assert.Error(t, c.Check(sibling))
}

func TestMissingFileFailsClosed(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "absent.json"))

	err := c.Check(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "ERR_102_ALLOWLIST_MISSING", rwerrors.CodeOf(err))
}

func TestInvalidJSONFailsClosed(t *testing.T) {
	c := Load(writeAllowlist(t, `{"allowed_directories": [broken`))

	err := c.Check(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "ERR_102_ALLOWLIST_MISSING", rwerrors.CodeOf(err))
}

func TestEmptyAllowlistFailsClosed(t *testing.T) {
	c := Load(writeAllowlist(t, `{"allowed_directories": []}`))

	err := c.Check(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, "ERR_103_ALLOWLIST_EMPTY", rwerrors.CodeOf(err))
}
