package gitignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchBasicPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"exact file", "secret.txt", "secret.txt", false, true},
		{"exact file nested", "secret.txt", "sub/secret.txt", false, true},
		{"star extension", "*.log", "debug.log", false, true},
		{"star nested", "*.log", "logs/debug.log", false, true},
		{"star no match", "*.log", "debug.txt", false, false},
		{"question mark", "file?.txt", "file1.txt", false, true},
		{"question mark too long", "file?.txt", "file12.txt", false, false},
		{"char class", "file[0-9].txt", "file5.txt", false, true},
		{"dir only matches dir", "build/", "build", true, true},
		{"dir only skips file", "build/", "build", false, false},
		{"dir only matches contents", "build/", "build/out.o", false, true},
		{"anchored root only", "/env.sh", "env.sh", false, true},
		{"anchored not nested", "/env.sh", "sub/env.sh", false, false},
		{"slash anchors", "doc/notes.md", "doc/notes.md", false, true},
		{"slash anchors not nested", "doc/notes.md", "x/doc/notes.md", false, false},
		{"double star prefix", "**/temp", "a/b/temp", false, true},
		{"double star middle", "a/**/b", "a/x/y/b", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddPattern(tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestNegationReincludes(t *testing.T) {
	// Given an ignore-all pattern with a negated exception
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!keep.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("keep.log", false))
}

func TestCommentsAndBlanksIgnored(t *testing.T) {
	m := New()
	m.AddPattern("# a comment")
	m.AddPattern("")
	m.AddPattern("   ")

	assert.False(t, m.Match("a comment", false))
	assert.Empty(t, m.rules)
}

func TestFilesUnderAnchoredDirIgnored(t *testing.T) {
	m := New()
	m.AddPattern("/vendor")

	assert.True(t, m.Match("vendor", false))
	assert.True(t, m.Match("vendor/pkg/lib.go", false))
	assert.False(t, m.Match("thirdparty/vendor.go", false))
}

func TestFromRoot(t *testing.T) {
	// Given a repo with a .gitignore
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"),
		[]byte("*.log\nbuild/\n"), 0o644))

	m, err := FromRoot(dir)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("build/out.o", false))
	assert.False(t, m.Match("main.go", false))
}

func TestFromRootMissingFile(t *testing.T) {
	m, err := FromRoot(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, m)

	// A nil matcher matches nothing
	assert.False(t, m.Match("anything", false))
}
