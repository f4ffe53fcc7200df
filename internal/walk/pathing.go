package walk

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NormalizePath returns the absolute, lexically normalized form of a
// path with any trailing separator stripped (unless it is the
// filesystem root). Two normalized paths are equal iff they refer to
// the same directory for root-membership purposes.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to absolutize %s: %w", path, err)
	}

	return filepath.Clean(abs), nil
}

// IsPathWithin reports whether path is root itself or lies below it.
// Both arguments must be normalized.
func IsPathWithin(root, path string) bool {
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return strings.HasPrefix(path, root)
	}

	return strings.HasPrefix(path, root+string(filepath.Separator))
}
