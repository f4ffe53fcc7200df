package mutate

import (
	"fmt"
	"log/slog"

	"github.com/desertwitch/treeop/internal/aggregate"
)

// RemoveCopies deletes, for every ContentKey present in more than one
// root, all files of that key outside the earliest root holding it.
// Catalogs of directories that lost files are refreshed afterwards.
// On an I/O error the partial counts accumulated so far are returned
// with the error.
func (h *Handler) RemoveCopies(db *aggregate.DB) (Result, error) {
	var result Result

	index := db.ContentIndex()
	dirty := make(map[string]struct{})

	for _, key := range sortedKeys(index) {
		occurrences := index[key]

		earliest := -1
		multiRoot := false
		for _, occ := range occurrences {
			if earliest < 0 {
				earliest = occ.RootIndex
			} else if occ.RootIndex != earliest {
				multiRoot = true
				if occ.RootIndex < earliest {
					earliest = occ.RootIndex
				}
			}
		}
		if !multiRoot {
			continue
		}

		for _, occ := range occurrences {
			if occ.RootIndex == earliest {
				continue
			}

			if h.DryRun {
				slog.Info("Would remove duplicate.", "path", occ.Ref.Path, "kept-root", db.Roots[earliest].Path)
				result.RemovedFiles++
				result.RemovedBytes += occ.Ref.Size

				continue
			}

			if err := h.OSOps.Remove(occ.Ref.Path); err != nil {
				return result, fmt.Errorf("failed to remove %s: %w", occ.Ref.Path, err)
			}
			slog.Debug("Removed duplicate.", "path", occ.Ref.Path, "kept-root", db.Roots[earliest].Path)

			result.RemovedFiles++
			result.RemovedBytes += occ.Ref.Size
			dirty[occ.Dir.Path] = struct{}{}
		}
	}

	if h.DryRun {
		return result, nil
	}

	if err := h.refreshDirty(dirty); err != nil {
		return result, err
	}

	return result, nil
}
