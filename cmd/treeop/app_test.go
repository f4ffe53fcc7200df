package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/extract"
	"github.com/desertwitch/treeop/internal/mutate"
	"github.com/desertwitch/treeop/internal/readbench"
	"github.com/desertwitch/treeop/internal/schema"
	"github.com/desertwitch/treeop/internal/walk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func launch(t *testing.T, args ...string) (string, error) {
	t.Helper()

	opts, err := parseOptions("treeop", args, emptyConfig())
	require.NoError(t, err)

	osProvider := &schema.OS{}
	unixProvider := &schema.Unix{}
	catalogs := catalog.NewHandler(osProvider, unixProvider, opts.BufSizeBytes, nil)
	walker := walk.NewHandler(osProvider, catalogs)
	mutator := mutate.NewHandler(osProvider, unixProvider, walker, opts.DryRun)
	extractor := extract.NewHandler(osProvider)
	bench := readbench.NewHandler(osProvider, opts.BufSizeBytes, nil)

	var out strings.Builder
	app := NewApp(opts, &out, catalogs, walker, mutator, extractor, bench, nil)
	err = app.Launch()

	return out.String(), err
}

func TestApp_StatsOnEmptyDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out, err := launch(t, dir)
	require.NoError(t, err)

	assert.Contains(t, out, "files:")
	assert.Contains(t, out, "dirs:")
	assert.Contains(t, out, " 1")
	assert.FileExists(t, catalog.SidecarPath(dir))
}

func TestApp_ThreeFilesTwoSizes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("abd"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c"), []byte("hello"), 0o644))

	out, err := launch(t, "--get-unique-hash-len", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "unique-hash-len: ")

	catalogs := catalog.NewHandler(&schema.OS{}, &schema.Unix{}, 0, nil)
	loaded, err := catalogs.Load(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Files, 3)
	assert.Equal(t, "a", loaded.Files[0].Name)
	assert.Equal(t, "b", loaded.Files[1].Name)
	assert.Equal(t, "c", loaded.Files[2].Name)
}

func TestApp_RedundancyStats(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "one"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "two"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "one", "f"), []byte("xyz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "two", "g"), []byte("xyz"), 0o644))

	out, err := launch(t, "--stats", root)
	require.NoError(t, err)

	assert.Contains(t, out, "redundant-files:")
	assert.Contains(t, out, "redundant-size:")
	assert.Contains(t, out, "3 bytes")
}

func TestApp_IntersectAndRemoveCopies(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f1"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f2"), []byte("onlyA"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "g1"), []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "g2"), []byte("onlyB"), 0o644))

	out, err := launch(t, "--intersect", rootA, rootB)
	require.NoError(t, err)
	assert.Contains(t, out, "only-A-files:")
	assert.Contains(t, out, "both-B-files:")

	out, err = launch(t, "--intersect", "--remove-copies", rootA, rootB)
	require.NoError(t, err)
	assert.Contains(t, out, "removed-files: 1")

	assert.FileExists(t, filepath.Join(rootA, "f1"))
	assert.NoFileExists(t, filepath.Join(rootB, "g1"))
	assert.FileExists(t, filepath.Join(rootB, "g2"))
}

func TestApp_HardlinkCopies(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a"), []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b"), []byte("0123456789"), 0o644))

	out, err := launch(t, "--hardlink-copies", "--min-size", "1", root)
	require.NoError(t, err)

	assert.Contains(t, out, "removed-files: 1")
	assert.Contains(t, out, "removed-size: 10 bytes")
}

func TestApp_RemoveDirDB(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("data"), 0o644))

	_, err := launch(t, "--stats", root)
	require.NoError(t, err)
	require.FileExists(t, catalog.SidecarPath(root))

	out, err := launch(t, "--remove-dirdb", root)
	require.NoError(t, err)

	assert.Contains(t, out, "removed 1")
	assert.NoFileExists(t, catalog.SidecarPath(root))
}

func TestApp_Extract(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "unique"), []byte("only A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "common"), []byte("both"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "common2"), []byte("both"), 0o644))

	dest := filepath.Join(t.TempDir(), "extracted")
	_, err := launch(t, "--intersect", "--extract-a", dest, rootA, rootB)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "unique"))
	assert.NoFileExists(t, filepath.Join(dest, "common"))
}

func TestApp_ReadBench(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("benchmark me"), 0o644))

	out, err := launch(t, "--readbench", root)
	require.NoError(t, err)

	assert.Contains(t, out, "read-files:")
	assert.Contains(t, out, "read-rate:")
}
