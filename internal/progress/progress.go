// Package progress renders a rate-limited single-line summary of an
// ongoing tree scan: file/dir/byte counters, hashing rate and the
// current path, either updated in place via carriage return or as one
// line per update.
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertwitch/treeop/internal/format"
)

// DefaultMaxWidth caps the progress line when no width is configured.
const DefaultMaxWidth = 199

// minInterval limits updates to at most one line per second.
const minInterval = time.Second

// Tracker accumulates scan counters and prints the summary line. It is
// updated from a single goroutine only; no internal locking.
type Tracker struct {
	out      io.Writer
	maxWidth int
	linefeed bool

	now       func() time.Time
	startTime time.Time
	lastPrint time.Time

	dirs        uint64
	files       uint64
	bytes       uint64
	hashedBytes uint64

	currentDir      string
	currentFile     string
	currentFileSize uint64
	currentFileDone uint64
	hashing         bool

	lastLineLen int
}

// NewTracker returns a Tracker writing to out. With linefeed set each
// update is a full line; otherwise the line is redrawn in place.
func NewTracker(out io.Writer, maxWidth int, linefeed bool) *Tracker {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	t := &Tracker{
		out:      out,
		maxWidth: maxWidth,
		linefeed: linefeed,
		now:      time.Now,
	}
	t.startTime = t.now()
	t.lastPrint = t.startTime

	return t
}

// DirStart notes the directory currently being processed.
func (t *Tracker) DirStart(path string) {
	if !t.hashing {
		t.currentDir = path
	}
	t.tick()
}

// DirDone counts a finished directory.
func (t *Tracker) DirDone() {
	t.dirs++
	t.tick()
}

// DirSummary accounts a directory whose files were taken from an
// existing sidecar rather than scanned individually.
func (t *Tracker) DirSummary(files uint64, bytes uint64) {
	t.dirs++
	t.files += files
	t.bytes += bytes
	t.tick()
}

// FileSeen counts one scanned file.
func (t *Tracker) FileSeen(size uint64) {
	t.files++
	t.bytes += size
	t.tick()
}

// HashStart switches the line to per-file hashing display.
func (t *Tracker) HashStart(path string, size uint64) {
	t.hashing = true
	t.currentFile = path
	t.currentFileSize = size
	t.currentFileDone = 0
	t.tick()
}

// HashProgress accounts hashed bytes of the current file.
func (t *Tracker) HashProgress(bytesRead uint64) {
	t.hashedBytes += bytesRead
	t.currentFileDone += bytesRead
	t.tick()
}

// HashEnd leaves per-file hashing display.
func (t *Tracker) HashEnd() {
	t.hashing = false
	t.currentFile = ""
	t.currentFileSize = 0
	t.currentFileDone = 0
	t.tick()
}

// Finish clears an in-place line so subsequent output starts clean.
func (t *Tracker) Finish() {
	if t.lastLineLen > 0 {
		fmt.Fprintf(t.out, "\r%s\r\n", strings.Repeat(" ", t.lastLineLen))
		t.lastLineLen = 0
	}
}

func (t *Tracker) tick() {
	now := t.now()
	if now.Sub(t.lastPrint) < minInterval {
		return
	}
	t.lastPrint = now
	t.printLine(now)
}

func (t *Tracker) printLine(now time.Time) {
	elapsed := now.Sub(t.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.hashedBytes) / elapsed
	}

	prefix := fmt.Sprintf("F:%d D:%d B:%s H:%s",
		t.files, t.dirs,
		format.FormatCompactSize(t.bytes),
		format.FormatRateMB(rate))

	var suffix string
	switch {
	case t.hashing && t.currentFile != "":
		percent := uint64(0)
		if t.currentFileSize > 0 {
			percent = t.currentFileDone * 100 / t.currentFileSize
		}
		percentStr := fmt.Sprintf("%d%%", percent)
		maxPath := t.availablePathLen(len(prefix), len(percentStr))
		suffix = percentStr + " " + format.AbbreviatePath(t.currentFile, maxPath)
	case t.currentDir != "":
		maxPath := t.availablePathLen(len(prefix), 0)
		suffix = format.AbbreviatePath(t.currentDir, maxPath)
	}

	line := prefix
	if suffix != "" {
		line += " " + suffix
	}
	if len(line) > t.maxWidth {
		line = line[:t.maxWidth]
	}

	if t.linefeed {
		fmt.Fprintln(t.out, line)

		return
	}

	pad := 0
	if t.lastLineLen > len(line) {
		pad = t.lastLineLen - len(line)
	}
	fmt.Fprintf(t.out, "\r%s%s\r", line, strings.Repeat(" ", pad))
	t.lastLineLen = len(line)
}

func (t *Tracker) availablePathLen(prefixLen, extraLen int) int {
	used := prefixLen + 1
	if extraLen > 0 {
		used += extraLen + 1
	}
	if used >= t.maxWidth {
		return 0
	}

	return t.maxWidth - used
}
