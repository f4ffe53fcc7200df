// Package mutate acts on aggregated content identity: deleting
// duplicate files across roots and collapsing duplicates into
// hardlinks, refreshing the affected catalogs afterwards.
package mutate

import (
	"os"
	"sort"

	"github.com/desertwitch/treeop/internal/aggregate"
	"github.com/desertwitch/treeop/internal/catalog"
	"golang.org/x/sys/unix"
)

// DefaultMaxHardlinks is the link-count cap above which a duplicate
// group's anchor is not given further links.
const DefaultMaxHardlinks = 60000

type osProvider interface {
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

type unixProvider interface {
	Link(oldpath, newpath string) error
	Stat(path string, stat *unix.Stat_t) error
}

type refreshProvider interface {
	Refresh(dirPath string) (*catalog.DirCatalog, error)
}

// Result counts the files and bytes a mutation removed (or, for
// hardlinking, freed by replacing copies with links).
type Result struct {
	RemovedFiles uint64
	RemovedBytes uint64
}

// Handler performs the mutations. With DryRun set it only logs the
// actions and counts what would have been done.
type Handler struct {
	OSOps   osProvider
	UnixOps unixProvider
	Walker  refreshProvider
	DryRun  bool
}

// NewHandler returns a mutation Handler.
func NewHandler(osOps osProvider, unixOps unixProvider, walker refreshProvider, dryRun bool) *Handler {
	return &Handler{
		OSOps:   osOps,
		UnixOps: unixOps,
		Walker:  walker,
		DryRun:  dryRun,
	}
}

// sortedKeys yields the content keys in deterministic (size, hash)
// order so runs are reproducible.
func sortedKeys(index map[aggregate.ContentKey][]aggregate.Occurrence) []aggregate.ContentKey {
	keys := make([]aggregate.ContentKey, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Size != keys[j].Size {
			return keys[i].Size < keys[j].Size
		}

		return keys[i].Hash.Compare(keys[j].Hash) < 0
	})

	return keys
}

// refreshDirty rebuilds the catalogs of all touched directories in
// update mode, so sidecars stay consistent with the tree.
func (h *Handler) refreshDirty(dirty map[string]struct{}) error {
	paths := make([]string, 0, len(dirty))
	for path := range dirty {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if _, err := h.Walker.Refresh(path); err != nil {
			return err
		}
	}

	return nil
}
