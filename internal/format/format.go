// Package format renders sizes, counts, rates and FILETIME dates the
// way the treeop output expects them, and parses user-supplied size
// strings with power-of-1024 suffixes.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// WindowsToUnixEpoch is the offset in seconds between the FILETIME
// epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const WindowsToUnixEpoch = 11644473600

// FiletimeTicksPerSecond is the number of 100ns FILETIME ticks per second.
const FiletimeTicksPerSecond = 10000000

//nolint:gochecknoglobals
var sizeUnits = []string{"bytes", "kB", "MB", "GB", "TB", "PB", "EB"}

// FormatSize renders a byte count as a fixed-point size string with
// three decimals ("1.500 kB"). Zero renders as "0" and byte-range
// values stay integral ("123 bytes").
func FormatSize(bytes uint64) string {
	if bytes == 0 {
		return "0"
	}

	value := float64(bytes)
	unitIndex := 0
	for whole := bytes; whole >= 1024 && unitIndex+1 < len(sizeUnits); whole >>= 10 {
		value /= 1024.0
		unitIndex++
	}

	if unitIndex == 0 {
		return fmt.Sprintf("%d %s", bytes, sizeUnits[0])
	}

	return fmt.Sprintf("%.3f %s", value, sizeUnits[unitIndex])
}

// FormatSizePrec is FormatSize over a fractional byte count with a
// caller-chosen precision (used e.g. for bytes-per-file averages).
func FormatSizePrec(bytes float64, precision int) string {
	if bytes <= 0.0 {
		return "0"
	}

	value := bytes
	unitIndex := 0
	for whole := uint64(bytes); whole >= 1024 && unitIndex+1 < len(sizeUnits); whole >>= 10 {
		value /= 1024.0
		unitIndex++
	}

	return fmt.Sprintf("%.*f %s", precision, value, sizeUnits[unitIndex])
}

// FormatCompactSize renders a byte count with one decimal, for the
// space-constrained progress line.
func FormatCompactSize(bytes uint64) string {
	value := float64(bytes)
	unitIndex := 0
	for whole := bytes; whole >= 1024 && unitIndex+1 < len(sizeUnits); whole >>= 10 {
		value /= 1024.0
		unitIndex++
	}

	return fmt.Sprintf("%.1f %s", value, sizeUnits[unitIndex])
}

// FormatRateMB renders a byte rate as "12.3MB/s".
func FormatRateMB(bytesPerSec float64) string {
	return fmt.Sprintf("%.1fMB/s", bytesPerSec/(1024.0*1024.0))
}

// FormatPercent renders a percentage with one decimal.
func FormatPercent(percent float64) string {
	return fmt.Sprintf("%.1f%%", percent)
}

// FormatCount renders an integral count with thousands separators.
func FormatCount(count uint64) string {
	return humanize.Comma(int64(count)) //nolint:gosec
}

// ParseSize parses a non-negative integer with an optional k/M/G/T/P/E
// suffix meaning powers of 1024.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty size", ErrBadSizeString)
	}

	shift := 0
	switch s[len(s)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	case 't', 'T':
		shift = 40
	case 'p', 'P':
		shift = 50
	case 'e', 'E':
		shift = 60
	}
	if shift > 0 {
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadSizeString, s)
	}
	if shift > 0 && value > (^uint64(0))>>shift {
		return 0, fmt.Errorf("%w: %q overflows", ErrBadSizeString, s)
	}

	return value << shift, nil
}

// FiletimeFromUnix converts Unix seconds and nanoseconds into FILETIME
// ticks (100ns since 1601-01-01 UTC). Pre-epoch times map to 0, which
// is reserved for "unknown".
func FiletimeFromUnix(sec int64, nsec int64) uint64 {
	if sec < 0 {
		return 0
	}

	return (uint64(sec)+WindowsToUnixEpoch)*FiletimeTicksPerSecond + uint64(nsec)/100 //nolint:gosec
}

// FiletimeToUnix converts FILETIME ticks back to Unix seconds. The
// second return is false for the reserved zero / pre-Unix-epoch range.
func FiletimeToUnix(filetime uint64) (int64, bool) {
	seconds := filetime / FiletimeTicksPerSecond
	if filetime == 0 || seconds < WindowsToUnixEpoch {
		return 0, false
	}

	return int64(seconds - WindowsToUnixEpoch), true //nolint:gosec
}

// FormatFiletime renders FILETIME ticks as "2006-01-02 15:04:05" in
// UTC, with the reserved zero value as "0000-00-00 00:00:00".
func FormatFiletime(filetime uint64) string {
	sec, ok := FiletimeToUnix(filetime)
	if !ok {
		return "0000-00-00 00:00:00"
	}

	return time.Unix(sec, 0).UTC().Format("2006-01-02 15:04:05")
}

// FormatSeconds renders an elapsed duration as a compact "1h02m03s" /
// "2m03s" / "4.2s" string.
func FormatSeconds(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}

	total := int64(seconds)
	if total < 3600 {
		return fmt.Sprintf("%dm%02ds", total/60, total%60)
	}

	return fmt.Sprintf("%dh%02dm%02ds", total/3600, (total%3600)/60, total%60)
}

// AbbreviatePath shortens a path to at most maxLen characters, keeping
// the trailing components and prefixing "..." when truncated.
func AbbreviatePath(path string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-maxLen:]
	}

	return "..." + path[len(path)-(maxLen-3):]
}

// PadLeft left-pads value with spaces to width.
func PadLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}

	return strings.Repeat(" ", width-len(value)) + value
}

// PadRight right-pads value with spaces to width.
func PadRight(value string, width int) string {
	if len(value) >= width {
		return value
	}

	return value + strings.Repeat(" ", width-len(value))
}

// HistogramUnit returns the divisor and label used to render histogram
// bucket boundaries for a given batch size.
func HistogramUnit(batchSize uint64) (uint64, string) {
	factor := uint64(1)
	index := 0
	for size := batchSize; size >= 1024 && index+1 < len(sizeUnits); size >>= 10 {
		factor <<= 10
		index++
	}

	return factor, sizeUnits[index]
}

// SplitSize splits a rendered size string into its number and unit
// suffix parts.
func SplitSize(value string) (string, string) {
	sep := strings.LastIndexByte(value, ' ')
	if sep < 0 {
		return value, ""
	}

	return value[:sep], value[sep+1:]
}

// DecimalPos returns the index of the decimal point in a number string,
// or its length when the number is integral.
func DecimalPos(value string) int {
	if pos := strings.IndexByte(value, '.'); pos >= 0 {
		return pos
	}

	return len(value)
}

// AlignDecimalTo left-pads a number string so its decimal point sits at
// the given column.
func AlignDecimalTo(value string, decimalPos int) string {
	pos := DecimalPos(value)
	if pos >= decimalPos {
		return value
	}

	return strings.Repeat(" ", decimalPos-pos) + value
}
