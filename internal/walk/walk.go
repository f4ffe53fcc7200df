// Package walk applies the catalog builder or loader to every
// directory under a root, and removes sidecar trees. Per-directory
// behavior is selected by a Policy; walk errors are logged and
// skipped, while sidecar decode failures abort the affected load.
package walk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/desertwitch/treeop/internal/catalog"
)

// Policy selects how the loader treats each directory's sidecar.
type Policy int

const (
	// PolicyReadOnly decodes existing sidecars and builds missing ones.
	PolicyReadOnly Policy = iota

	// PolicyForceNew always rebuilds, overwriting existing sidecars.
	PolicyForceNew

	// PolicyUpdate rebuilds, reusing fingerprints from an existing
	// sidecar when the (inode, size, mtime) triple is unchanged.
	PolicyUpdate
)

type catalogProvider interface {
	Build(dirPath string, cache catalog.ReuseCache) (*catalog.DirCatalog, error)
	HasSidecar(dirPath string) bool
	Load(dirPath string) (*catalog.DirCatalog, error)
	Peek(dirPath string) (*catalog.DirCatalog, error)
}

type osProvider interface {
	Remove(name string) error
	Stat(name string) (os.FileInfo, error)
}

// Handler walks directory trees and maintains their catalogs.
type Handler struct {
	OSOps    osProvider
	Catalogs catalogProvider
}

// NewHandler returns a tree walking Handler.
func NewHandler(osOps osProvider, catalogs catalogProvider) *Handler {
	return &Handler{
		OSOps:    osOps,
		Catalogs: catalogs,
	}
}

// LoadTree walks root top-down, following directories only, and
// returns one catalog per directory per the policy.
func (h *Handler) LoadTree(root string, policy Policy) ([]*catalog.DirCatalog, error) {
	var dirs []*catalog.DirCatalog

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping entry due to walk error.", "path", path, "err", err)

			return nil
		}
		if !d.IsDir() {
			return nil
		}

		dir, err := h.loadOrCreate(path, policy)
		if err != nil {
			return err
		}
		dirs = append(dirs, dir)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tree %s: %w", root, err)
	}

	return dirs, nil
}

func (h *Handler) loadOrCreate(dirPath string, policy Policy) (*catalog.DirCatalog, error) {
	switch policy {
	case PolicyForceNew:
		return h.Catalogs.Build(dirPath, nil)

	case PolicyUpdate:
		if h.Catalogs.HasSidecar(dirPath) {
			existing, err := h.Catalogs.Peek(dirPath)
			if err != nil {
				return nil, err
			}
			cache := make(catalog.ReuseCache, len(existing.Files))
			cache.Seed(existing.Files)

			return h.Catalogs.Build(dirPath, cache)
		}

		return h.Catalogs.Build(dirPath, nil)

	case PolicyReadOnly:
		fallthrough
	default:
		if h.Catalogs.HasSidecar(dirPath) {
			return h.Catalogs.Load(dirPath)
		}

		return h.Catalogs.Build(dirPath, nil)
	}
}

// Refresh rebuilds the catalog of a single directory in update mode,
// seeding the reuse cache from its current sidecar when present.
func (h *Handler) Refresh(dirPath string) (*catalog.DirCatalog, error) {
	return h.loadOrCreate(dirPath, PolicyUpdate)
}

// RemoveSidecars removes every sidecar under root and returns how many
// were removed. Walk errors are logged and skipped.
func (h *Handler) RemoveSidecars(root string) (int, error) {
	removed := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping entry due to walk error.", "path", path, "err", err)

			return nil
		}
		if !d.IsDir() {
			return nil
		}

		dbPath := catalog.SidecarPath(path)
		if _, err := h.OSOps.Stat(dbPath); err != nil {
			return nil
		}
		if err := h.OSOps.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dbPath, err)
		}
		slog.Debug("Removed sidecar.", "path", dbPath)
		removed++

		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to clean tree %s: %w", root, err)
	}

	return removed, nil
}
