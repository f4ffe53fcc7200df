package extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertwitch/treeop/internal/aggregate"
	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/extract"
	"github.com/desertwitch/treeop/internal/schema"
	"github.com/desertwitch/treeop/internal/walk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexRoots(t *testing.T, roots ...string) []map[aggregate.ContentKey][]aggregate.FileRef {
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

	return db.RootIndex()
}

func TestExtractUnique_CopiesOnlyUnique(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	rootB := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(rootA, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "shared"), []byte("shared data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "sub", "unique"), []byte("only in A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "other"), []byte("shared data"), 0o644))

	index := indexRoots(t, rootA, rootB)

	dest := filepath.Join(t.TempDir(), "out")
	copied, err := extract.NewHandler(&schema.OS{}).ExtractUnique(rootA, dest, index[0], index[1])
	require.NoError(t, err)

	assert.Equal(t, 1, copied)
	assert.NoFileExists(t, filepath.Join(dest, "shared"))

	data, err := os.ReadFile(filepath.Join(dest, "sub", "unique"))
	require.NoError(t, err)
	assert.Equal(t, "only in A", string(data))
}

func TestExtractUnique_RefusesExistingDestination(t *testing.T) {
	t.Parallel()

	rootA := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rootA, "f"), []byte("x"), 0o644))

	index := indexRoots(t, rootA)
	dest := t.TempDir() // exists already

	_, err := extract.NewHandler(&schema.OS{}).ExtractUnique(rootA, dest, index[0], nil)
	assert.ErrorIs(t, err, extract.ErrDestinationExists)
}
