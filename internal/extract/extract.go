// Package extract copies intersection-unique files into a fresh
// destination tree, verifying every copy with checksums on both ends
// of the stream.
package extract

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/desertwitch/treeop/internal/aggregate"
	"github.com/zeebo/blake3"
)

// tmpSuffix stages a copy next to its destination before the rename.
const tmpSuffix = ".treeop"

type osProvider interface {
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
}

// Handler copies unique intersection files out of a root.
type Handler struct {
	OSOps osProvider
}

// NewHandler returns an extraction Handler.
func NewHandler(osOps osProvider) *Handler {
	return &Handler{OSOps: osOps}
}

// ExtractUnique copies every file of rootSrc whose ContentKey does not
// occur in filesOther into destRoot, preserving relative paths. The
// destination must not exist yet.
func (h *Handler) ExtractUnique(rootSrc, destRoot string, filesSrc, filesOther map[aggregate.ContentKey][]aggregate.FileRef) (int, error) {
	if _, err := h.OSOps.Stat(destRoot); err == nil {
		return 0, fmt.Errorf("%w: %s", ErrDestinationExists, destRoot)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("failed to check destination %s: %w", destRoot, err)
	}

	if err := h.OSOps.MkdirAll(destRoot, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination %s: %w", destRoot, err)
	}

	var refs []aggregate.FileRef
	for key, list := range filesSrc {
		if len(filesOther[key]) > 0 {
			continue
		}
		refs = append(refs, list...)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })

	copied := 0
	for _, ref := range refs {
		rel, err := filepath.Rel(rootSrc, ref.Path)
		if err != nil {
			return copied, fmt.Errorf("failed to compute relative path for %s: %w", ref.Path, err)
		}
		destPath := filepath.Join(destRoot, rel)

		if err := h.OSOps.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return copied, fmt.Errorf("failed to create directory for %s: %w", destPath, err)
		}
		if err := h.copyFile(ref.Path, destPath); err != nil {
			return copied, err
		}
		copied++
	}

	return copied, nil
}

// copyFile streams src to a sibling temporary of dst and renames it
// into place, comparing independent checksums of the bytes read and
// the bytes written.
func (h *Handler) copyFile(src, dst string) error {
	var transferComplete bool

	srcFile, err := h.OSOps.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer srcFile.Close()

	tmpPath := dst + tmpSuffix
	defer func() {
		if !transferComplete {
			h.OSOps.Remove(tmpPath) //nolint:errcheck
		}
	}()

	dstFile, err := h.OSOps.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open destination file %s: %w", tmpPath, err)
	}
	defer dstFile.Close()

	srcHasher := blake3.New()
	dstHasher := blake3.New()

	if _, err := io.Copy(io.MultiWriter(dstFile, dstHasher), io.TeeReader(srcFile, srcHasher)); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}

	srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))
	dstChecksum := hex.EncodeToString(dstHasher.Sum(nil))
	if srcChecksum != dstChecksum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", ErrChecksumMismatch, srcChecksum, dstChecksum)
	}

	if err := h.OSOps.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, dst, err)
	}
	transferComplete = true

	return nil
}
