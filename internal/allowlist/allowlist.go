// Package allowlist restricts which directories may be indexed.
//
// The allowlist is a JSON file naming permitted directory roots. It
// fails closed: if the file is missing, unreadable, or empty, every
// path is rejected rather than silently allowing everything.
package allowlist

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	rwerrors "github.com/repowhisper/repowhisper/internal/errors"
)

// fileFormat is the on-disk allowlist shape.
type fileFormat struct {
	AllowedDirectories []string `json:"allowed_directories"`
}

// Checker validates paths against the allowlist.
type Checker struct {
	dirs    []string
	loadErr *rwerrors.Error
}

// Load reads the allowlist file. Load itself never fails: problems are
// captured and reported by Check so the server stays up while rejecting
// every request.
func Load(path string) *Checker {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("allowlist file unreadable, rejecting all paths", "path", path, "error", err)
		return &Checker{loadErr: rwerrors.New(rwerrors.ErrCodeAllowlistMissing,
			"allowlist file unreadable: "+path, err)}
	}

	var parsed fileFormat
	if err := json.Unmarshal(data, &parsed); err != nil {
		slog.Error("allowlist file invalid, rejecting all paths", "path", path, "error", err)
		return &Checker{loadErr: rwerrors.New(rwerrors.ErrCodeAllowlistMissing,
			"allowlist file invalid: "+path, err)}
	}

	var dirs []string
	for _, d := range parsed.AllowedDirectories {
		expanded, err := expandHome(d)
		if err != nil {
			slog.Warn("cannot expand allowlist entry, skipping", "entry", d, "error", err)
			continue
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			slog.Warn("cannot resolve allowlist entry, skipping", "entry", d, "error", err)
			continue
		}
		abs = filepath.Clean(abs)
		// Resolve symlinks so entries compare equal to resolved candidates
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		dirs = append(dirs, abs)
	}

	if len(dirs) == 0 {
		slog.Error("allowlist is empty, rejecting all paths", "path", path)
		return &Checker{loadErr: rwerrors.New(rwerrors.ErrCodeAllowlistEmpty,
			"allowlist contains no usable directories: "+path, nil)}
	}

	slog.Info("allowlist loaded", "path", path, "directories", len(dirs))
	return &Checker{dirs: dirs}
}

// Check returns nil if path is inside an allowed directory.
func (c *Checker) Check(path string) error {
	if c.loadErr != nil {
		return c.loadErr
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return rwerrors.InvalidInput("invalid path: "+path, err)
	}
	abs = filepath.Clean(abs)

	// Resolve symlinks so links cannot escape the allowlist. A path
	// that doesn't exist yet is checked as given.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	for _, dir := range c.dirs {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return rwerrors.Newf(rwerrors.ErrCodePathNotAllowed, "path not in allowlist: %s", path).
		WithDetail("resolved_path", abs)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
