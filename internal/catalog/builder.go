package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/desertwitch/treeop/internal/format"
	"github.com/desertwitch/treeop/internal/sha3"
	"golang.org/x/sys/unix"
)

// DefaultBufSize is the default read buffer for file hashing.
const DefaultBufSize = 1024 * 1024

type osProvider interface {
	Open(name string) (*os.File, error)
	ReadDir(name string) ([]os.DirEntry, error)
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type unixProvider interface {
	Lstat(path string, stat *unix.Stat_t) error
}

// Handler scans directories into catalogs and loads existing sidecars.
// It never recurses; walking a tree is the caller's concern.
type Handler struct {
	OSOps    osProvider
	UnixOps  unixProvider
	BufSize  int
	Progress Reporter
}

// NewHandler returns a catalog Handler; bufSize <= 0 selects the
// default 1 MiB hashing buffer.
func NewHandler(osOps osProvider, unixOps unixProvider, bufSize int, progress Reporter) *Handler {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}

	return &Handler{
		OSOps:    osOps,
		UnixOps:  unixOps,
		BufSize:  bufSize,
		Progress: progress,
	}
}

// SidecarPath returns the sidecar path for a directory.
func SidecarPath(dirPath string) string {
	return filepath.Join(dirPath, SidecarName)
}

// HasSidecar reports whether a directory has a sidecar file.
func (h *Handler) HasSidecar(dirPath string) bool {
	_, err := h.OSOps.Stat(SidecarPath(dirPath))

	return err == nil
}

// Load reads and decodes an existing sidecar into a catalog,
// reporting the directory's totals to the progress reporter.
func (h *Handler) Load(dirPath string) (*DirCatalog, error) {
	dir, err := h.Peek(dirPath)
	if err != nil {
		return nil, err
	}

	if h.Progress != nil {
		h.Progress.DirStart(dirPath)
		h.Progress.DirSummary(uint64(len(dir.Files)), dir.TotalBytes())
	}

	return dir, nil
}

// Peek is Load without progress reporting, for callers that reread a
// sidecar only to seed the reuse cache.
func (h *Handler) Peek(dirPath string) (*DirCatalog, error) {
	dbPath := SidecarPath(dirPath)

	data, err := h.OSOps.ReadFile(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar %s: %w", dbPath, err)
	}

	files, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sidecar %s: %w", dbPath, err)
	}

	return &DirCatalog{
		Path:   dirPath,
		Files:  files,
		DBSize: uint64(len(data)),
	}, nil
}

// Build scans the direct children of a directory, computes or reuses
// fingerprints, and atomically replaces the sidecar. The cache may be
// nil for a cold build. Sizes are taken from lstat at scan time and
// used consistently for ordering, accounting and the TOC.
func (h *Handler) Build(dirPath string, cache ReuseCache) (*DirCatalog, error) {
	if h.Progress != nil {
		h.Progress.DirStart(dirPath)
		defer h.Progress.DirDone()
	}

	children, err := h.OSOps.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dirPath, err)
	}

	var files []FileEntry
	var hashedBytes uint64
	var hashSeconds float64

	for _, child := range children {
		name := child.Name()
		if name == SidecarName || name == sidecarTmpName {
			continue
		}
		if child.Type() != 0 { // not a regular file
			continue
		}

		path := filepath.Join(dirPath, name)

		var stat unix.Stat_t
		if err := h.UnixOps.Lstat(path, &stat); err != nil {
			if errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.EACCES) || errors.Is(err, fs.ErrNotExist) {
				slog.Debug("Skipping unreadable entry.", "path", path, "err", err)

				continue
			}

			return nil, fmt.Errorf("failed to lstat %s: %w", path, err)
		}
		if stat.Mode&unix.S_IFMT != unix.S_IFREG {
			continue
		}

		size := uint64(stat.Size) //nolint:gosec
		mtime := format.FiletimeFromUnix(stat.Mtim.Sec, stat.Mtim.Nsec)

		if h.Progress != nil {
			h.Progress.FileSeen(size)
		}

		entry := FileEntry{
			Name:     name,
			Size:     size,
			Inode:    stat.Ino,
			Mtime:    mtime,
			NumLinks: uint64(stat.Nlink), //nolint:gosec,unconvert
		}

		if hash, ok := cache[ReuseKey{Inode: stat.Ino, Size: size, Mtime: mtime}]; ok {
			entry.Hash = hash
		} else {
			hash, seconds, err := h.hashFile(path, size)
			if err != nil {
				return nil, err
			}
			entry.Hash = hash
			hashedBytes += size
			hashSeconds += seconds
		}

		files = append(files, entry)
	}

	sortEntries(files)

	blob := Encode(files)
	if err := h.writeSidecar(dirPath, blob); err != nil {
		return nil, err
	}

	return &DirCatalog{
		Path:        dirPath,
		Files:       files,
		DBSize:      uint64(len(blob)),
		HashedBytes: hashedBytes,
		HashSeconds: hashSeconds,
	}, nil
}

// writeSidecar writes the full blob to a sibling temporary and renames
// it over the sidecar, so readers never observe a partial catalog.
func (h *Handler) writeSidecar(dirPath string, blob []byte) error {
	tmpPath := filepath.Join(dirPath, sidecarTmpName)
	dbPath := SidecarPath(dirPath)

	if err := h.OSOps.WriteFile(tmpPath, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar %s: %w", tmpPath, err)
	}
	if err := h.OSOps.Rename(tmpPath, dbPath); err != nil {
		h.OSOps.Remove(tmpPath) //nolint:errcheck

		return fmt.Errorf("failed to replace sidecar %s: %w", dbPath, err)
	}

	return nil
}

// hashFile streams a file through SHA3-128 with the configured buffer.
func (h *Handler) hashFile(path string, size uint64) (sha3.Hash128, float64, error) {
	file, err := h.OSOps.Open(path)
	if err != nil {
		return sha3.Hash128{}, 0, fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer file.Close()

	if h.Progress != nil {
		h.Progress.HashStart(path, size)
		defer h.Progress.HashEnd()
	}

	hasher := sha3.New128()
	buffer := make([]byte, h.BufSize)
	start := time.Now()

	for {
		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n]) //nolint:errcheck
			if h.Progress != nil {
				h.Progress.HashProgress(uint64(n))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return sha3.Hash128{}, 0, fmt.Errorf("failed to read %s while hashing: %w", path, err)
		}
	}

	seconds := time.Since(start).Seconds()

	digest := hasher.Sum(nil)
	if len(digest) < sha3.DigestBytes128 {
		return sha3.Hash128{}, 0, fmt.Errorf("%w: hashing %s", ErrShortDigest, path)
	}

	return sha3.Hash128FromDigest(digest), seconds, nil
}
