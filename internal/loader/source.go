package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"IBSentinel/internal/model"
)

// Source defines the interface for loading a raw intraday series.
type Source interface {
	// Name identifies the source in logs and cache keys.
	Name() string
	// Fingerprint changes whenever the underlying data changes.
	// An empty fingerprint means the source cannot tell and must be reloaded.
	Fingerprint(ctx context.Context) (string, error)
	Load(ctx context.Context) ([]model.RawRow, error)
}

// ErrNotFound is returned by FindDataFile when no file matches.
var ErrNotFound = errors.New("data file not found")

// FileFingerprint identifies a file version by path, size and modification time.
func FileFingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()), nil
}

// FindDataFile returns the first file named name under root, walking
// directories in lexical order. Hidden directories are skipped.
func FindDataFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s under %s", ErrNotFound, name, root)
	}
	return found, nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// validIdentifier reports whether s is a safe (optionally schema-qualified) table or column name.
func validIdentifier(s string) bool { return identifier.MatchString(s) }

func checkContext(ctx context.Context, n int) error {
	if n%4096 != 0 {
		return nil
	}
	return ctx.Err()
}
