package aggregate

import (
	"fmt"
	"io"

	"github.com/desertwitch/treeop/internal/format"
)

// RootStats are the aggregate statistics for one root.
type RootStats struct {
	Files          uint64
	Dirs           uint64
	TotalSize      uint64
	RedundantFiles uint64
	RedundantSize  uint64
	DBSize         uint64
	HashedBytes    uint64
	HashSeconds    float64
}

// StatsForRoot computes the statistics of root i. Redundancy counts
// every occurrence of a ContentKey beyond the first.
func (db *DB) StatsForRoot(i int) RootStats {
	var stats RootStats
	contentCounts := make(map[ContentKey]uint64)

	for _, dir := range db.rootDirs(i) {
		stats.Dirs++
		stats.Files += uint64(len(dir.Files))
		stats.DBSize += dir.DBSize
		stats.HashedBytes += dir.HashedBytes
		stats.HashSeconds += dir.HashSeconds

		for j := range dir.Files {
			file := &dir.Files[j]
			stats.TotalSize += file.Size
			contentCounts[db.Key(file)]++
		}
	}

	for key, count := range contentCounts {
		if count > 1 {
			extra := count - 1
			stats.RedundantFiles += extra
			stats.RedundantSize += extra * key.Size
		}
	}

	return stats
}

// RenderStats writes the per-root statistics block for every root.
func (db *DB) RenderStats(w io.Writer) {
	for i := range db.Roots {
		stats := db.StatsForRoot(i)

		percentOf := func(part, whole uint64) string {
			if whole == 0 {
				return format.FormatPercent(0)
			}

			return format.FormatPercent(100 * float64(part) / float64(whole))
		}

		bytesPerFile := 0.0
		if stats.Files > 0 {
			bytesPerFile = float64(stats.DBSize) / float64(stats.Files)
		}

		lines := []format.StatLine{
			{Label: "files:", Value: format.FormatCount(stats.Files)},
			{Label: "dirs:", Value: format.FormatCount(stats.Dirs)},
			{Label: "total-size:", Value: format.FormatSize(stats.TotalSize)},
			{Label: "redundant-files:", Value: format.FormatCount(stats.RedundantFiles), Extra: "(" + percentOf(stats.RedundantFiles, stats.Files) + ")"},
			{Label: "redundant-size:", Value: format.FormatSize(stats.RedundantSize), Extra: "(" + percentOf(stats.RedundantSize, stats.TotalSize) + ")"},
			{Label: "dirdb-size:", Value: format.FormatSize(stats.DBSize), Extra: "(" + percentOf(stats.DBSize, stats.TotalSize) + ")"},
			{Label: "dirdb-bytes-per-file:", Value: format.FormatSizePrec(bytesPerFile, 1)},
		}

		if stats.HashedBytes > 0 && stats.HashSeconds > 0 {
			rate := float64(stats.HashedBytes) / stats.HashSeconds
			lines = append(lines,
				format.StatLine{Label: "hash-size:", Value: format.FormatSize(stats.HashedBytes)},
				format.StatLine{Label: "hash-rate:", Value: format.FormatRateMB(rate)},
			)
		}
		if db.Roots[i].ElapsedSeconds > 0 {
			lines = append(lines, format.StatLine{
				Label: "elapsed:",
				Value: format.FormatSeconds(db.Roots[i].ElapsedSeconds),
			})
		}

		fmt.Fprintln(w, db.Roots[i].Path)
		format.RenderStatLines(w, lines)
	}
}
