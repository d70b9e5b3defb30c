package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

// writeTree creates files under dir, creating parent directories as needed.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"manual", "guided", "full", "FULL"} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseMode("everything")
	require.Error(t, err)
	assert.Equal(t, "ERR_401_INVALID_INPUT", rwerrors.CodeOf(err))
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(Options{
		Root: filepath.Join(t.TempDir(), "nope"),
		Mode: ModeFull,
	})
	require.Error(t, err)
	assert.Equal(t, "ERR_401_INVALID_INPUT", rwerrors.CodeOf(err))
}

func TestDiscoverManual(t *testing.T) {
	// Given a repo and an explicit file list with one missing entry
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":      "print('hi')",
		"lib/util.py":  "def util(): pass",
		"lib/other.ts": "export {}",
	})

	files, err := Discover(Options{
		Root:  dir,
		Mode:  ModeManual,
		Paths: []string{"main.py", "lib/util.py", "missing.py", "main.py"},
	})
	require.NoError(t, err)

	// Then existing files come back absolute, deduplicated, and sorted
	assert.Equal(t, []string{
		filepath.Join(dir, "lib", "util.py"),
		filepath.Join(dir, "main.py"),
	}, files)
}

func TestDiscoverManualRespectsExclusions(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"ok.py":                  "x = 1",
		"node_modules/dep.py":    "x = 2",
		".hidden/secret.py":      "x = 3",
		"__pycache__/cached.pyc": "",
	})

	files, err := Discover(Options{
		Root: dir,
		Mode: ModeManual,
		Paths: []string{
			"ok.py",
			"node_modules/dep.py",
			".hidden/secret.py",
			"__pycache__/cached.pyc",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "ok.py")}, files)
}

func TestDiscoverGuided(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"app.py":            "x",
		"src/model.py":      "x",
		"src/view.swift":    "x",
		"src/helper.ts":     "x",
		"docs/readme.md":    "x",
		"venv/lib/pkg.py":   "x",
		".git/hooks/foo.py": "x",
	})

	files, err := Discover(Options{
		Root:     dir,
		Mode:     ModeGuided,
		Patterns: []string{"*.py", "*.swift"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "app.py"),
		filepath.Join(dir, "src", "model.py"),
		filepath.Join(dir, "src", "view.swift"),
	}, files)
}

func TestDiscoverFull(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.go":              "x",
		"cmd/app/run.go":       "x",
		"README.md":            "x",
		"image.png":            "x",
		"dist/bundle.js":       "x",
		"node_modules/mod.js":  "x",
		"build/out.go":         "x",
		".next/cache/chunk.js": "x",
		"Pods/Dep/dep.m":       "x",
	})

	files, err := Discover(Options{
		Root:       dir,
		Mode:       ModeFull,
		Extensions: []string{".go", ".md", ".js", ".m"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "README.md"),
		filepath.Join(dir, "cmd", "app", "run.go"),
		filepath.Join(dir, "main.go"),
	}, files)
}

func TestDiscoverFullSkipsHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"visible.py": "x",
		".env.py":    "x",
	})

	files, err := Discover(Options{
		Root:       dir,
		Mode:       ModeFull,
		Extensions: []string{".py"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "visible.py")}, files)
}

func TestDiscoverSkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 3*1024)
	for i := range big {
		big[i] = 'a'
	}
	writeTree(t, dir, map[string]string{"small.py": "x"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.py"), big, 0o644))

	files, err := Discover(Options{
		Root:          dir,
		Mode:          ModeFull,
		Extensions:    []string{".py"},
		MaxFileSizeKB: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "small.py")}, files)
}

func TestDiscoverHonorsGitignore(t *testing.T) {
	// Given a repository whose .gitignore excludes generated files
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"main.py":         "x",
		"generated.py":    "x",
		"out/artifact.py": "x",
		"src/keep.py":     "x",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"),
		[]byte("generated.py\nout/\n"), 0o644))

	// When discovering in full mode
	files, err := Discover(Options{
		Root:       dir,
		Mode:       ModeFull,
		Extensions: []string{".py"},
	})
	require.NoError(t, err)

	// Then ignored files and directories are absent
	assert.Equal(t, []string{
		filepath.Join(dir, "main.py"),
		filepath.Join(dir, "src", "keep.py"),
	}, files)
}
