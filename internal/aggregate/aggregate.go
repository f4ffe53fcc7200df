// Package aggregate holds every loaded catalog in memory, indexed by
// content identity, and answers the cross-tree questions: statistics,
// size histograms, n-way intersection and unique-hash-length.
package aggregate

import (
	"path/filepath"
	"sort"

	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/sha3"
	"github.com/desertwitch/treeop/internal/walk"
)

// Root is one top-level directory given on the command line.
type Root struct {
	Path           string
	ElapsedSeconds float64
}

// ContentKey is the identity tuple for aggregation: two files with
// equal keys are considered the same content.
type ContentKey struct {
	Size uint64
	Hash sha3.Hash128
}

// FileRef is one cataloged file with its full path.
type FileRef struct {
	Path     string
	Size     uint64
	Hash     sha3.Hash128
	Inode    uint64
	Mtime    uint64
	NumLinks uint64
}

// Occurrence ties a FileRef to the root it was found under.
type Occurrence struct {
	RootIndex int
	Dir       *catalog.DirCatalog
	Ref       FileRef
}

// DB aggregates all catalogs of one invocation.
type DB struct {
	Roots        []Root
	Dirs         []*catalog.DirCatalog
	SameFilename bool
}

// NewDB returns a DB over the given normalized root paths.
func NewDB(rootPaths []string, sameFilename bool) *DB {
	roots := make([]Root, 0, len(rootPaths))
	for _, path := range rootPaths {
		roots = append(roots, Root{Path: path})
	}

	return &DB{
		Roots:        roots,
		SameFilename: sameFilename,
	}
}

// AddDirs appends loaded catalogs.
func (db *DB) AddDirs(dirs []*catalog.DirCatalog) {
	db.Dirs = append(db.Dirs, dirs...)
}

// SetRootElapsed records the wall-clock seconds spent loading a root.
func (db *DB) SetRootElapsed(rootPath string, seconds float64) {
	for i := range db.Roots {
		if db.Roots[i].Path == rootPath {
			db.Roots[i].ElapsedSeconds = seconds

			break
		}
	}
}

// Key derives the ContentKey of a file entry. In same-filename mode
// the 16 digest bytes are concatenated with the raw basename bytes and
// re-hashed, so equal content only matches under equal names.
func (db *DB) Key(file *catalog.FileEntry) ContentKey {
	if !db.SameFilename {
		return ContentKey{Size: file.Size, Hash: file.Hash}
	}

	h := sha3.New128()
	h.Write(file.Hash.Bytes()) //nolint:errcheck
	h.Write([]byte(file.Name)) //nolint:errcheck

	return ContentKey{
		Size: file.Size,
		Hash: sha3.Hash128FromDigest(h.Sum(nil)),
	}
}

// rootDirs yields the catalogs belonging to root i.
func (db *DB) rootDirs(i int) []*catalog.DirCatalog {
	var dirs []*catalog.DirCatalog
	for _, dir := range db.Dirs {
		if walk.IsPathWithin(db.Roots[i].Path, dir.Path) {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}

// RootIndex returns per-root maps from ContentKey to file occurrences.
func (db *DB) RootIndex() []map[ContentKey][]FileRef {
	index := make([]map[ContentKey][]FileRef, len(db.Roots))
	for i := range db.Roots {
		index[i] = make(map[ContentKey][]FileRef)
		for _, dir := range db.rootDirs(i) {
			for j := range dir.Files {
				file := &dir.Files[j]
				key := db.Key(file)
				index[i][key] = append(index[i][key], fileRef(dir, file))
			}
		}
	}

	return index
}

// ContentIndex returns one map across all roots, each key listing its
// occurrences in command-line root order.
func (db *DB) ContentIndex() map[ContentKey][]Occurrence {
	index := make(map[ContentKey][]Occurrence)
	for i := range db.Roots {
		for _, dir := range db.rootDirs(i) {
			for j := range dir.Files {
				file := &dir.Files[j]
				key := db.Key(file)
				index[key] = append(index[key], Occurrence{
					RootIndex: i,
					Dir:       dir,
					Ref:       fileRef(dir, file),
				})
			}
		}
	}

	return index
}

// AllRefs returns every cataloged file across all directories.
func (db *DB) AllRefs() []FileRef {
	var refs []FileRef
	for _, dir := range db.Dirs {
		for i := range dir.Files {
			refs = append(refs, fileRef(dir, &dir.Files[i]))
		}
	}

	return refs
}

// sortRefsByPath gives map-derived listings a stable order.
func sortRefsByPath(refs []FileRef) {
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].Path < refs[j].Path
	})
}

func fileRef(dir *catalog.DirCatalog, file *catalog.FileEntry) FileRef {
	return FileRef{
		Path:     filepath.Join(dir.Path, file.Name),
		Size:     file.Size,
		Hash:     file.Hash,
		Inode:    file.Inode,
		Mtime:    file.Mtime,
		NumLinks: file.NumLinks,
	}
}
