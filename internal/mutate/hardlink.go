package mutate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/desertwitch/treeop/internal/aggregate"
	"golang.org/x/sys/unix"
)

// tmpLinkSuffix is appended to a target path to stage the new link
// next to it before the atomic rename.
const tmpLinkSuffix = ".treeop"

// tmpLinkTries bounds the numeric counter probing for a free
// temporary path.
const tmpLinkTries = 100

// HardlinkCopies replaces duplicate files of at least minSize bytes
// with hardlinks to the group's oldest copy. When the rename succeeds,
// the target path holds either its old inode or the anchor's inode at
// every instant; only the remove-then-rename fallback of
// replaceWithLink leaves it briefly missing. Groups whose anchor
// already carries maxLinks links are skipped with a warning. Catalogs
// of touched directories are refreshed afterwards.
//
//nolint:gocognit
func (h *Handler) HardlinkCopies(db *aggregate.DB, minSize uint64, maxLinks uint64) (Result, error) {
	var result Result

	index := db.ContentIndex()
	dirty := make(map[string]struct{})

	for _, key := range sortedKeys(index) {
		occurrences := index[key]
		if len(occurrences) < 2 || key.Size < minSize {
			continue
		}

		anchor := occurrences[0]
		for _, occ := range occurrences[1:] {
			if occ.Ref.Mtime < anchor.Ref.Mtime ||
				(occ.Ref.Mtime == anchor.Ref.Mtime && occ.Ref.Path < anchor.Ref.Path) {
				anchor = occ
			}
		}

		// The cataloged link count may be stale; consult the live tree.
		var anchorStat unix.Stat_t
		if err := h.UnixOps.Stat(anchor.Ref.Path, &anchorStat); err != nil {
			return result, fmt.Errorf("failed to stat anchor %s: %w", anchor.Ref.Path, err)
		}
		if uint64(anchorStat.Nlink) >= maxLinks { //nolint:gosec,unconvert
			slog.Warn("Skipping group: anchor at hardlink limit.",
				"path", anchor.Ref.Path,
				"links", anchorStat.Nlink,
				"limit", maxLinks,
			)

			continue
		}

		for _, occ := range occurrences {
			if occ.Ref.Path == anchor.Ref.Path || occ.Ref.Inode == anchorStat.Ino {
				continue
			}

			if h.DryRun {
				slog.Info("Would hardlink duplicate.", "path", occ.Ref.Path, "anchor", anchor.Ref.Path)
				result.RemovedFiles++
				result.RemovedBytes += occ.Ref.Size

				continue
			}

			if err := h.replaceWithLink(anchor.Ref.Path, occ.Ref.Path); err != nil {
				return result, err
			}
			slog.Debug("Hardlinked duplicate.", "path", occ.Ref.Path, "anchor", anchor.Ref.Path)

			result.RemovedFiles++
			result.RemovedBytes += occ.Ref.Size
			dirty[occ.Dir.Path] = struct{}{}
			dirty[anchor.Dir.Path] = struct{}{}
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

// freeTempPath picks a sibling temporary next to target that does not
// exist yet.
func (h *Handler) freeTempPath(target string) (string, error) {
	tmpPath := target + tmpLinkSuffix
	for try := 0; try < tmpLinkTries; try++ {
		if try > 0 {
			tmpPath = target + tmpLinkSuffix + strconv.Itoa(try-1)
		}
		if _, err := h.OSOps.Stat(tmpPath); errors.Is(err, fs.ErrNotExist) {
			return tmpPath, nil
		}
	}

	return "", fmt.Errorf("%w: next to %s", ErrNoFreeTempPath, target)
}

// replaceWithLink links the anchor at a temporary sibling of target
// and renames it into place. If the rename is refused, the target is
// removed and the rename retried; if that fails too, the temporary is
// cleaned up and the error surfaced.
func (h *Handler) replaceWithLink(anchorPath, target string) error {
	tmpPath, err := h.freeTempPath(target)
	if err != nil {
		return err
	}

	if err := h.UnixOps.Link(anchorPath, tmpPath); err != nil {
		return fmt.Errorf("failed to link %s at %s: %w", anchorPath, tmpPath, err)
	}

	if err := h.OSOps.Rename(tmpPath, target); err != nil {
		slog.Warn("Rename refused, replacing target directly.", "path", target, "err", err)

		if err := h.OSOps.Remove(target); err != nil {
			h.OSOps.Remove(tmpPath) //nolint:errcheck

			return fmt.Errorf("failed to remove %s for relink: %w", target, err)
		}
		if err := h.OSOps.Rename(tmpPath, target); err != nil {
			h.OSOps.Remove(tmpPath) //nolint:errcheck

			return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, target, err)
		}
	}

	return nil
}
