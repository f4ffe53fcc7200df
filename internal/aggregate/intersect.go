package aggregate

import (
	"fmt"
	"io"

	"github.com/desertwitch/treeop/internal/format"
)

// IntersectPartition splits one root's files into content unique to
// that root and content shared with at least one other root.
type IntersectPartition struct {
	UniqueFiles uint64
	UniqueBytes uint64
	SharedFiles uint64
	SharedBytes uint64
}

// Intersect partitions every root's files by ContentKey against all
// other roots.
func (db *DB) Intersect() []IntersectPartition {
	index := db.RootIndex()
	partitions := make([]IntersectPartition, len(db.Roots))

	for i := range db.Roots {
		for key, refs := range index[i] {
			count := uint64(len(refs))
			bytes := count * key.Size

			shared := false
			for j := range db.Roots {
				if j == i {
					continue
				}
				if len(index[j][key]) > 0 {
					shared = true

					break
				}
			}

			if shared {
				partitions[i].SharedFiles += count
				partitions[i].SharedBytes += bytes
			} else {
				partitions[i].UniqueFiles += count
				partitions[i].UniqueBytes += bytes
			}
		}
	}

	return partitions
}

// IntersectListOptions selects the optional pairwise file listings.
type IntersectListOptions struct {
	ListA    bool
	ListB    bool
	ListBoth bool
	Verbose  int
}

// RenderIntersect writes intersection statistics. Two roots render in
// the pairwise A/B form with shared counts on both sides; more roots
// render one unique/shared block per root plus totals.
func (db *DB) RenderIntersect(w io.Writer, opts IntersectListOptions) {
	if len(db.Roots) == 2 {
		db.renderIntersectPair(w, opts)

		return
	}

	partitions := db.Intersect()

	var totals IntersectPartition
	for i, part := range partitions {
		totals.UniqueFiles += part.UniqueFiles
		totals.UniqueBytes += part.UniqueBytes
		totals.SharedFiles += part.SharedFiles
		totals.SharedBytes += part.SharedBytes

		fmt.Fprintln(w, db.Roots[i].Path)
		format.RenderStatLines(w, []format.StatLine{
			{Label: "unique-files:", Value: format.FormatCount(part.UniqueFiles)},
			{Label: "unique-size:", Value: format.FormatSize(part.UniqueBytes)},
			{Label: "shared-files:", Value: format.FormatCount(part.SharedFiles)},
			{Label: "shared-size:", Value: format.FormatSize(part.SharedBytes)},
		})
	}

	fmt.Fprintln(w, "total")
	format.RenderStatLines(w, []format.StatLine{
		{Label: "unique-files:", Value: format.FormatCount(totals.UniqueFiles)},
		{Label: "unique-size:", Value: format.FormatSize(totals.UniqueBytes)},
		{Label: "shared-files:", Value: format.FormatCount(totals.SharedFiles)},
		{Label: "shared-size:", Value: format.FormatSize(totals.SharedBytes)},
	})
}

//nolint:funlen
func (db *DB) renderIntersectPair(w io.Writer, opts IntersectListOptions) {
	index := db.RootIndex()
	filesA, filesB := index[0], index[1]
	partitions := db.Intersect()

	percentOf := func(part, whole uint64) string {
		if whole == 0 {
			return format.FormatPercent(0)
		}

		return format.FormatPercent(100 * float64(part) / float64(whole))
	}

	totalFilesA := partitions[0].UniqueFiles + partitions[0].SharedFiles
	totalBytesA := partitions[0].UniqueBytes + partitions[0].SharedBytes
	totalFilesB := partitions[1].UniqueFiles + partitions[1].SharedFiles
	totalBytesB := partitions[1].UniqueBytes + partitions[1].SharedBytes

	fmt.Fprintln(w, "A: "+db.Roots[0].Path)
	fmt.Fprintln(w, "B: "+db.Roots[1].Path)
	format.RenderStatLines(w, []format.StatLine{
		{Label: "only-A-files:", Value: format.FormatCount(partitions[0].UniqueFiles), Extra: "(" + percentOf(partitions[0].UniqueFiles, totalFilesA) + " of A)"},
		{Label: "only-A-size:", Value: format.FormatSize(partitions[0].UniqueBytes), Extra: "(" + percentOf(partitions[0].UniqueBytes, totalBytesA) + " of A)"},
		{Label: "both-A-files:", Value: format.FormatCount(partitions[0].SharedFiles), Extra: "(" + percentOf(partitions[0].SharedFiles, totalFilesA) + " of A)"},
		{Label: "both-A-size:", Value: format.FormatSize(partitions[0].SharedBytes), Extra: "(" + percentOf(partitions[0].SharedBytes, totalBytesA) + " of A)"},
		{Label: "both-B-files:", Value: format.FormatCount(partitions[1].SharedFiles), Extra: "(" + percentOf(partitions[1].SharedFiles, totalFilesB) + " of B)"},
		{Label: "both-B-size:", Value: format.FormatSize(partitions[1].SharedBytes), Extra: "(" + percentOf(partitions[1].SharedBytes, totalBytesB) + " of B)"},
		{Label: "only-B-files:", Value: format.FormatCount(partitions[1].UniqueFiles), Extra: "(" + percentOf(partitions[1].UniqueFiles, totalFilesB) + " of B)"},
		{Label: "only-B-size:", Value: format.FormatSize(partitions[1].UniqueBytes), Extra: "(" + percentOf(partitions[1].UniqueBytes, totalBytesB) + " of B)"},
	})

	hashLen := 0
	if opts.Verbose > 0 && (opts.ListA || opts.ListB || opts.ListBoth) {
		hashLen = db.UniqueHashHexLen()
	}

	listOnly := func(header string, src, other map[ContentKey][]FileRef) {
		fmt.Fprintln(w, header)
		var refs []FileRef
		for key, list := range src {
			if len(other[key]) > 0 {
				continue
			}
			refs = append(refs, list...)
		}
		sortRefsByPath(refs)
		if opts.Verbose > 0 {
			renderListRows(w, refs, opts.Verbose > 1, hashLen)
		} else {
			for _, ref := range refs {
				fmt.Fprintln(w, ref.Path)
			}
		}
	}

	if opts.ListA {
		listOnly("only-in-A:", filesA, filesB)
	}
	if opts.ListB {
		listOnly("only-in-B:", filesB, filesA)
	}
	if opts.ListBoth {
		fmt.Fprintln(w, "in-both:")
		var refs []FileRef
		for key, listA := range filesA {
			listB := filesB[key]
			if len(listB) == 0 {
				continue
			}
			for _, ref := range listA {
				ref.Path = "A: " + ref.Path
				refs = append(refs, ref)
			}
			for _, ref := range listB {
				ref.Path = "B: " + ref.Path
				refs = append(refs, ref)
			}
		}
		sortRefsByPath(refs)
		if opts.Verbose > 0 {
			renderListRows(w, refs, opts.Verbose > 1, hashLen)
		} else {
			for _, ref := range refs {
				fmt.Fprintln(w, ref.Path)
			}
		}
	}
}
