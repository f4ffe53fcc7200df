// Package catalog implements the per-directory sidecar metadata
// catalog: its in-memory model, the binary sidecar codec and the
// directory scanner that builds catalogs with hash reuse.
package catalog

import (
	"sort"

	"github.com/desertwitch/treeop/internal/sha3"
)

// SidecarName is the name of the per-directory catalog file.
const SidecarName = ".dirdb"

// sidecarTmpName is the sibling temporary used for atomic replacement.
const sidecarTmpName = SidecarName + ".tmp"

// FileEntry describes a single regular file of a directory.
type FileEntry struct {
	Name     string
	Size     uint64
	Hash     sha3.Hash128
	Inode    uint64
	Mtime    uint64 // FILETIME ticks (100ns since 1601-01-01 UTC)
	NumLinks uint64
}

// DirCatalog is the decoded catalog of one directory. Files are sorted
// by (size ascending, name ascending).
type DirCatalog struct {
	Path        string // absolute, normalized
	Files       []FileEntry
	DBSize      uint64
	HashedBytes uint64
	HashSeconds float64
}

// TotalBytes returns the sum of all file sizes in the catalog.
func (c *DirCatalog) TotalBytes() uint64 {
	var total uint64
	for i := range c.Files {
		total += c.Files[i].Size
	}

	return total
}

// sortEntries establishes the canonical (size ascending, name
// ascending) order.
func sortEntries(files []FileEntry) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size < files[j].Size
		}

		return files[i].Name < files[j].Name
	})
}

// ReuseKey identifies a file whose previous fingerprint may be reused
// without re-reading its content.
type ReuseKey struct {
	Inode uint64
	Size  uint64
	Mtime uint64
}

// ReuseCache maps stat triples to previously computed fingerprints.
type ReuseCache map[ReuseKey]sha3.Hash128

// Seed adds all entries of a decoded catalog to the cache.
func (c ReuseCache) Seed(files []FileEntry) {
	for i := range files {
		file := &files[i]
		c[ReuseKey{Inode: file.Inode, Size: file.Size, Mtime: file.Mtime}] = file.Hash
	}
}

// Reporter receives scan and hash progress callbacks. Implementations
// must be cheap; the builder calls them on every file.
type Reporter interface {
	DirStart(path string)
	DirDone()
	FileSeen(size uint64)
	DirSummary(files uint64, bytes uint64)
	HashStart(path string, size uint64)
	HashProgress(bytesRead uint64)
	HashEnd()
}
