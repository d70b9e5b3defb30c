// Package gitignore matches paths against gitignore-style patterns.
// Discovery uses it so files a project already ignores never reach the
// index. Pattern semantics follow https://git-scm.com/docs/gitignore;
// only the repository root .gitignore is consulted.
package gitignore

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Matcher holds compiled ignore patterns.
type Matcher struct {
	rules []rule
}

type rule struct {
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
	anchored bool
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// FromRoot loads root/.gitignore. Returns nil when the repository has
// no ignore file.
func FromRoot(root string) (*Matcher, error) {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	m := New()
	if err := m.AddFromFile(path); err != nil {
		return nil, err
	}
	return m, nil
}

// AddFromFile reads patterns from a gitignore file.
func (m *Matcher) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return scanner.Err()
}

// AddPattern adds one gitignore pattern. Blank lines and comments are
// ignored.
func (m *Matcher) AddPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	var r rule
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	if strings.HasPrefix(pattern, "/") {
		r.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") && !strings.HasPrefix(pattern, "**/") {
		// A slash anywhere in the pattern anchors it to the root
		r.anchored = true
	}

	r.regex = regexp.MustCompile("^" + patternToRegex(pattern) + "$")
	m.rules = append(m.rules, r)
}

// Match reports whether the root-relative path should be ignored.
// Later rules win, so negations can re-include earlier matches.
func (m *Matcher) Match(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range m.rules {
		if matchRule(relPath, isDir, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

// matchRule checks one rule against a path. A directory-only pattern
// also matches every path inside the directory.
func matchRule(path string, isDir bool, r rule) bool {
	parts := strings.Split(path, "/")

	if r.anchored {
		if r.regex.MatchString(path) {
			return !r.dirOnly || isDir
		}
		// Files under an ignored directory are ignored too
		for i := 1; i < len(parts); i++ {
			if r.regex.MatchString(strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	if r.dirOnly {
		for i, part := range parts {
			if r.regex.MatchString(part) {
				if i == len(parts)-1 {
					return isDir
				}
				return true
			}
		}
		return false
	}

	if r.regex.MatchString(path) {
		return true
	}
	for _, part := range parts {
		if r.regex.MatchString(part) {
			return true
		}
	}
	return false
}

// patternToRegex converts a gitignore glob to a regular expression.
func patternToRegex(pattern string) string {
	var b strings.Builder

	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 3
				continue
			}
			if strings.HasPrefix(pattern[i:], "**") {
				b.WriteString(".*")
				i += 2
				continue
			}
			b.WriteString("[^/]*")
			i++
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end > 0 {
				b.WriteString(pattern[i : i+end+1])
				i += end + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	return b.String()
}
