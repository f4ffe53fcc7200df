package mutate_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/desertwitch/treeop/internal/aggregate"
	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/mutate"
	"github.com/desertwitch/treeop/internal/schema"
	"github.com/desertwitch/treeop/internal/walk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDB(t *testing.T, roots ...string) (*aggregate.DB, *walk.Handler) {
	t.Helper()

	osOps := &schema.OS{}
	catalogs := catalog.NewHandler(osOps, &schema.Unix{}, 0, nil)
	walker := walk.NewHandler(osOps, catalogs)

	db := aggregate.NewDB(roots, false)
	for _, root := range roots {
		dirs, err := walker.LoadTree(root, walk.PolicyReadOnly)
		require.NoError(t, err)
		db.AddDirs(dirs)
	}

	return db, walker
}

func newMutator(walker *walk.Handler, dryRun bool) *mutate.Handler {
	return mutate.NewHandler(&schema.OS{}, &schema.Unix{}, walker, dryRun)
}

func inodeOf(t *testing.T, path string) uint64 {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	sys, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)

	return sys.Ino
}

func linksOf(t *testing.T, path string) uint64 {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)
	sys, ok := info.Sys().(*syscall.Stat_t)
	require.True(t, ok)

	return uint64(sys.Nlink) //nolint:unconvert
}

func TestRemoveCopies_KeepsEarliestRoot(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f1"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f2"), []byte("onlyA"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "g1"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "g2"), []byte("onlyB"), 0o644))

	db, walker := loadDB(t, rootA, rootB)
	result, err := newMutator(walker, false).RemoveCopies(db)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.RemovedFiles)
	assert.Equal(t, uint64(4), result.RemovedBytes)

	assert.FileExists(t, filepath.Join(rootA, "f1"))
	assert.FileExists(t, filepath.Join(rootA, "f2"))
	assert.NoFileExists(t, filepath.Join(rootB, "g1"))
	assert.FileExists(t, filepath.Join(rootB, "g2"))

	// B's sidecar was refreshed and no longer lists g1.
	catalogs := catalog.NewHandler(&schema.OS{}, &schema.Unix{}, 0, nil)
	refreshed, err := catalogs.Load(rootB)
	require.NoError(t, err)
	require.Len(t, refreshed.Files, 1)
	assert.Equal(t, "g2", refreshed.Files[0].Name)
}

func TestRemoveCopies_DryRun(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f"), []byte("dup"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "g"), []byte("dup"), 0o644))

	db, walker := loadDB(t, rootA, rootB)
	result, err := newMutator(walker, true).RemoveCopies(db)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.RemovedFiles)
	assert.FileExists(t, filepath.Join(rootB, "g"))
}

func TestRemoveCopies_MultipleLaterRoots(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	rootC := t.TempDir()
	for _, root := range []string{rootA, rootB, rootC} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "dup"), []byte("shared!"), 0o644))
	}

	db, walker := loadDB(t, rootA, rootB, rootC)
	result, err := newMutator(walker, false).RemoveCopies(db)
	require.NoError(t, err)

	// c=3, earliest root holds 1: exactly 2 removed.
	assert.Equal(t, uint64(2), result.RemovedFiles)
	assert.FileExists(t, filepath.Join(rootA, "dup"))
	assert.NoFileExists(t, filepath.Join(rootB, "dup"))
	assert.NoFileExists(t, filepath.Join(rootC, "dup"))
}

func TestHardlinkCopies_AnchorsOldest(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	older := filepath.Join(root, "older")
	newer := filepath.Join(root, "newer")
	require.NoError(t, os.WriteFile(older, []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("0123456789"), 0o644))

	t1 := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(older, t1, t1))

	oldInode := inodeOf(t, older)

	db, walker := loadDB(t, root)
	result, err := newMutator(walker, false).HardlinkCopies(db, 1, mutate.DefaultMaxHardlinks)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.RemovedFiles)
	assert.Equal(t, uint64(10), result.RemovedBytes)

	assert.FileExists(t, older)
	assert.FileExists(t, newer)
	assert.Equal(t, oldInode, inodeOf(t, older))
	assert.Equal(t, oldInode, inodeOf(t, newer))
	assert.Equal(t, uint64(2), linksOf(t, older))

	// The refreshed catalog reflects the shared inode and link count.
	catalogs := catalog.NewHandler(&schema.OS{}, &schema.Unix{}, 0, nil)
	refreshed, err := catalogs.Load(root)
	require.NoError(t, err)
	for _, file := range refreshed.Files {
		assert.Equal(t, oldInode, file.Inode)
		assert.Equal(t, uint64(2), file.NumLinks)
	}
}

func TestHardlinkCopies_MinSizeFilter(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a"), []byte("tiny"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b"), []byte("tiny"), 0o644))

	db, walker := loadDB(t, root)
	result, err := newMutator(walker, false).HardlinkCopies(db, 100, mutate.DefaultMaxHardlinks)
	require.NoError(t, err)

	assert.Zero(t, result.RemovedFiles)
	assert.NotEqual(t, inodeOf(t, filepath.Join(root, "a")), inodeOf(t, filepath.Join(root, "b")))
}

func TestHardlinkCopies_SkipsAlreadyLinked(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	require.NoError(t, os.WriteFile(a, []byte("linked data"), 0o644))
	require.NoError(t, os.Link(a, b))

	db, walker := loadDB(t, root)
	result, err := newMutator(walker, false).HardlinkCopies(db, 1, mutate.DefaultMaxHardlinks)
	require.NoError(t, err)

	assert.Zero(t, result.RemovedFiles)
	assert.Equal(t, uint64(2), linksOf(t, a))
}

func TestHardlinkCopies_RespectsLinkCap(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	c := filepath.Join(root, "c")
	require.NoError(t, os.WriteFile(a, []byte("cap data"), 0o644))
	require.NoError(t, os.Link(a, b))
	require.NoError(t, os.WriteFile(c, []byte("cap data"), 0o644))

	older := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(a, older, older))

	db, walker := loadDB(t, root)

	// Anchor (a, with 2 links) already meets the cap of 2.
	result, err := newMutator(walker, false).HardlinkCopies(db, 1, 2)
	require.NoError(t, err)

	assert.Zero(t, result.RemovedFiles)
	assert.NotEqual(t, inodeOf(t, a), inodeOf(t, c))
}

func TestHardlinkCopies_DryRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	require.NoError(t, os.WriteFile(a, []byte("dry run data"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("dry run data"), 0o644))

	db, walker := loadDB(t, root)
	result, err := newMutator(walker, true).HardlinkCopies(db, 1, mutate.DefaultMaxHardlinks)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.RemovedFiles)
	assert.NotEqual(t, inodeOf(t, a), inodeOf(t, b))
	assert.Equal(t, uint64(1), linksOf(t, a))
}
