package main

import (
	"testing"

	"github.com/desertwitch/treeop/internal/configuration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyConfig() *configuration.Handler {
	return configuration.NewHandler(&configuration.GodotenvProvider{})
}

func parse(t *testing.T, args ...string) (*Options, error) {
	t.Helper()

	return parseOptions("treeop", args, emptyConfig())
}

func TestParseOptions_DefaultsToStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts, err := parse(t, dir)
	require.NoError(t, err)

	assert.True(t, opts.Stats)
	assert.Equal(t, []string{dir}, opts.Roots)
	assert.Equal(t, 1024*1024, opts.BufSizeBytes)
}

func TestParseOptions_RequiresDirs(t *testing.T) {
	t.Parallel()

	_, err := parse(t)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = parse(t, "/does/not/exist")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseOptions_ModeConflicts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dir2 := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"new and update dirdb", []string{"--new-dirdb", "--update-dirdb", dir}},
		{"list-a without intersect", []string{"--list-a", dir}},
		{"extract without intersect", []string{"--extract-a", "/tmp/x", dir}},
		{"remove-copies without intersect", []string{"--remove-copies", dir, dir2}},
		{"intersect with one dir", []string{"--intersect", dir}},
		{"dry-run without mutation", []string{"--dry-run", dir}},
		{"readbench with stats", []string{"--readbench", "--stats", dir}},
		{"same-filename alone", []string{"--same-filename", dir}},
		{"bad histogram size", []string{"--size-histogram", "abc", dir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parse(t, tt.args...)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestParseOptions_IntersectPipeline(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()

	opts, err := parse(t, "-i", "--remove-copies", "--dry-run", "--same-filename", dirA, dirB)
	require.NoError(t, err)

	assert.True(t, opts.Intersect)
	assert.True(t, opts.RemoveCopies)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.SameFilename)
	assert.False(t, opts.Stats)
}

func TestParseOptions_SizeStrings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts, err := parse(t, "--size-histogram", "1M", "--max-size", "2G", "--bufsize", "64k", dir)
	require.NoError(t, err)

	assert.Equal(t, uint64(1024*1024), opts.HistogramBatch)
	assert.Equal(t, uint64(2*1024*1024*1024), opts.MaxSizeBytes)
	assert.True(t, opts.HasMaxSize)
	assert.Equal(t, 64*1024, opts.BufSizeBytes)
}

func TestParseOptions_CountedFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts, err := parse(t, "-p", "-p", "-v", "-v", "-v", dir)
	require.NoError(t, err)

	assert.Equal(t, 2, opts.Progress)
	assert.Equal(t, 3, opts.Verbose)
}

func TestParseOptions_HardlinkDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts, err := parse(t, "--hardlink-copies", dir)
	require.NoError(t, err)

	assert.True(t, opts.HardlinkCopies)
	assert.Equal(t, uint64(1), opts.MinSizeBytes)
	assert.Equal(t, uint64(60000), opts.MaxHardlinks)
	assert.False(t, opts.Stats)
}
