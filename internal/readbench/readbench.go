// Package readbench measures sequential read throughput over every
// regular file under the given roots, using the same buffer size as
// the hashing path.
package readbench

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/desertwitch/treeop/internal/catalog"
	"github.com/desertwitch/treeop/internal/format"
)

type osProvider interface {
	Open(name string) (*os.File, error)
}

// Handler runs the read benchmark.
type Handler struct {
	OSOps    osProvider
	BufSize  int
	Progress catalog.Reporter

	buffer []byte
}

// NewHandler returns a benchmark Handler; bufSize <= 0 selects the
// default hashing buffer size.
func NewHandler(osOps osProvider, bufSize int, progress catalog.Reporter) *Handler {
	if bufSize <= 0 {
		bufSize = catalog.DefaultBufSize
	}

	return &Handler{
		OSOps:    osOps,
		BufSize:  bufSize,
		Progress: progress,
	}
}

// Run reads every regular file under the roots once and writes the
// aggregate throughput. Walk errors are logged and skipped; read
// errors abort the benchmark.
func (h *Handler) Run(roots []string, w io.Writer) error {
	var files, bytes uint64
	start := time.Now()

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("Skipping entry due to walk error.", "path", path, "err", err)

				return nil
			}
			if d.IsDir() {
				if h.Progress != nil {
					h.Progress.DirStart(path)
				}

				return nil
			}
			if d.Type() != 0 || d.Name() == catalog.SidecarName {
				return nil
			}

			read, err := h.readFile(path)
			if err != nil {
				return err
			}
			files++
			bytes += read
			if h.Progress != nil {
				h.Progress.FileSeen(read)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to benchmark %s: %w", root, err)
		}
	}

	elapsed := time.Since(start).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(bytes) / elapsed
	}

	format.RenderStatLines(w, []format.StatLine{
		{Label: "read-files:", Value: format.FormatCount(files)},
		{Label: "read-size:", Value: format.FormatSize(bytes)},
		{Label: "read-time:", Value: format.FormatSeconds(elapsed)},
		{Label: "read-rate:", Value: format.FormatRateMB(rate)},
	})

	return nil
}

func (h *Handler) readFile(path string) (uint64, error) {
	file, err := h.OSOps.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var total uint64
	for {
		n, err := file.Read(h.bufferFor())
		total += uint64(n) //nolint:gosec
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}

			return total, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}

// bufferFor returns the shared read buffer; one file is read at a
// time, so reuse is safe.
func (h *Handler) bufferFor() []byte {
	if h.buffer == nil {
		h.buffer = make([]byte, h.BufSize)
	}

	return h.buffer
}
