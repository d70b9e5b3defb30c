// Package discover finds the files to index within a repository.
//
// Three modes are supported: manual (explicit file list), guided (glob
// patterns walked recursively), and full (extension allowlist walked
// recursively). All modes apply the same exclusion rules, return absolute
// paths, and deduplicate and sort the result.
package discover

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
	"github.com/repowhisper/repowhisper/internal/gitignore"
)

// Mode selects a file discovery strategy.
type Mode string

const (
	// ModeManual indexes only the explicitly listed files.
	ModeManual Mode = "manual"
	// ModeGuided walks the tree matching glob patterns against file names.
	ModeGuided Mode = "guided"
	// ModeFull walks the tree taking every file with an allowed extension.
	ModeFull Mode = "full"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeManual:
		return ModeManual, nil
	case ModeGuided:
		return ModeGuided, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", rwerrors.InvalidInput("unknown discovery mode: "+s, nil)
	}
}

// excludedDirNames are directory names never descended into, in any mode.
var excludedDirNames = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	".git":         true,
	"venv":         true,
	".venv":        true,
	"build":        true,
	"dist":         true,
	".next":        true,
	"Pods":         true,
	".build":       true,
}

// ExcludedDir reports whether a directory name is never descended into:
// dotted directories plus the well-known dependency/build output names.
func ExcludedDir(name string) bool {
	return excludedDirNames[name] || (strings.HasPrefix(name, ".") && len(name) > 1)
}

// Options configures a discovery run.
type Options struct {
	// Root is the repository root. Must exist.
	Root string
	// Mode selects the strategy.
	Mode Mode
	// Paths are the manual-mode file paths, relative to Root or absolute.
	Paths []string
	// Patterns are the guided-mode glob patterns, matched against file names.
	Patterns []string
	// Extensions is the full-mode extension allowlist (with leading dots).
	Extensions []string
	// MaxFileSizeKB skips files larger than this during walks (0 = no limit).
	MaxFileSizeKB int
}

// Discover returns the absolute paths of the files to index, sorted and
// deduplicated. A missing root is an input error.
func Discover(opts Options) ([]string, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, rwerrors.InvalidInput("invalid root path: "+opts.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, rwerrors.InvalidInput("repository root does not exist: "+root, err)
	}
	if !info.IsDir() {
		return nil, rwerrors.InvalidInput("repository root is not a directory: "+root, nil)
	}

	// Walk modes honor the repository's own .gitignore on top of the
	// built-in exclusions. A malformed file is logged and skipped.
	ignore, ignoreErr := gitignore.FromRoot(root)
	if ignoreErr != nil {
		slog.Warn("cannot read .gitignore, continuing without it", "root", root, "error", ignoreErr)
		ignore = nil
	}

	var files []string
	switch opts.Mode {
	case ModeManual:
		files = discoverManual(root, opts.Paths)
	case ModeGuided:
		files, err = discoverWalk(root, ignore, opts.MaxFileSizeKB, func(name string) bool {
			return matchesAny(name, opts.Patterns)
		})
	case ModeFull:
		allowed := make(map[string]bool, len(opts.Extensions))
		for _, ext := range opts.Extensions {
			allowed[strings.ToLower(ext)] = true
		}
		files, err = discoverWalk(root, ignore, opts.MaxFileSizeKB, func(name string) bool {
			return allowed[strings.ToLower(filepath.Ext(name))]
		})
	default:
		return nil, rwerrors.InvalidInput("unknown discovery mode: "+string(opts.Mode), nil)
	}
	if err != nil {
		return nil, err
	}

	return dedupSort(files), nil
}

// discoverManual resolves explicit paths. Missing files are logged and
// skipped; excluded paths are silently dropped so manual mode cannot
// reach into ignored directories.
func discoverManual(root string, paths []string) []string {
	var files []string
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(p) {
			abs = filepath.Join(root, p)
		}
		abs = filepath.Clean(abs)

		// Exclusion rules look at segments below the root, so a root that
		// itself lives under a dotted directory is not rejected.
		check := abs
		if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
			check = rel
		}
		if isExcluded(check) {
			continue
		}

		info, err := os.Stat(abs)
		if err != nil {
			slog.Warn("manual path not found, skipping", "path", p)
			continue
		}
		if info.IsDir() {
			slog.Warn("manual path is a directory, skipping", "path", p)
			continue
		}
		files = append(files, abs)
	}
	return files
}

// discoverWalk walks the tree collecting files the match function accepts.
func discoverWalk(root string, ignore *gitignore.Matcher, maxSizeKB int, match func(name string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal
			slog.Warn("cannot read path during discovery", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = d.Name()
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && (excludedDirNames[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			if path != root && ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || !match(name) {
			return nil
		}
		if ignore.Match(rel, false) {
			return nil
		}

		if maxSizeKB > 0 {
			if info, err := d.Info(); err == nil && info.Size() > int64(maxSizeKB)*1024 {
				slog.Debug("skipping oversized file", "path", path, "size", info.Size())
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, rwerrors.Wrap(rwerrors.ErrCodeInternal, err)
	}
	return files, nil
}

// matchesAny reports whether the file name matches any of the glob patterns.
func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// isExcluded reports whether any path segment is hidden or an excluded
// directory name.
func isExcluded(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		if excludedDirNames[seg] {
			return true
		}
		if strings.HasPrefix(seg, ".") && len(seg) > 1 {
			return true
		}
	}
	return false
}

// dedupSort returns the unique paths in sorted order.
func dedupSort(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
