package aggregate

import (
	"fmt"
	"io"
	"strconv"

	"github.com/desertwitch/treeop/internal/format"
)

// histogramBucket accumulates one size range.
type histogramBucket struct {
	count     uint64
	totalSize uint64
}

// maxBarLineWidth bounds histogram lines that carry a trailing bar.
const maxBarLineWidth = 79

// RenderSizeHistogram bucketizes all files by floor(size/batch)*batch
// and writes one row per bucket from 0 to the largest occupied bucket.
// Files above maxSize are skipped when hasMax is set. showEnd adds the
// bucket end boundary, showBar a proportional '#' bar.
func (db *DB) RenderSizeHistogram(w io.Writer, batch uint64, maxSize uint64, hasMax bool, showEnd, showBar bool) error {
	if batch == 0 {
		return ErrZeroBatchSize
	}

	buckets := make(map[uint64]histogramBucket)
	var largest uint64
	hasFiles := false

	for _, dir := range db.Dirs {
		for i := range dir.Files {
			size := dir.Files[i].Size
			if hasMax && size > maxSize {
				continue
			}
			start := (size / batch) * batch
			bucket := buckets[start]
			bucket.count++
			bucket.totalSize += size
			buckets[start] = bucket
			if !hasFiles || size > largest {
				largest = size
				hasFiles = true
			}
		}
	}

	unitFactor, unitLabel := format.HistogramUnit(batch)

	var maxStart uint64
	if hasFiles {
		maxStart = (largest / batch) * batch
	}

	// First pass: column widths.
	var widthStartNum, widthEndNum, widthCount, totalDecimalPos, totalSuffixWidth int
	var bucketTotalStrings []string
	var bucketTotals []uint64
	var maxBucketTotal uint64

	for start := uint64(0); ; start += batch {
		widthStartNum = max(widthStartNum, len(strconv.FormatUint(start/unitFactor, 10)))
		if showEnd {
			widthEndNum = max(widthEndNum, len(strconv.FormatUint((start+batch)/unitFactor, 10)))
		}

		bucket := buckets[start]
		widthCount = max(widthCount, len(strconv.FormatUint(bucket.count, 10)))
		totalStr := format.FormatSize(bucket.totalSize)
		number, suffix := format.SplitSize(totalStr)
		totalDecimalPos = max(totalDecimalPos, format.DecimalPos(number))
		totalSuffixWidth = max(totalSuffixWidth, len(suffix))
		bucketTotalStrings = append(bucketTotalStrings, totalStr)
		bucketTotals = append(bucketTotals, bucket.totalSize)
		maxBucketTotal = max(maxBucketTotal, bucket.totalSize)

		if start >= maxStart {
			break
		}
	}

	widthTotal := 0
	for _, totalStr := range bucketTotalStrings {
		number, _ := format.SplitSize(totalStr)
		numberWidth := len(number) + max(0, totalDecimalPos-format.DecimalPos(number))
		widthTotal = max(widthTotal, numberWidth+1+totalSuffixWidth)
	}

	widthStart := widthStartNum + 1 + len(unitLabel)
	widthEnd := 0
	if showEnd {
		widthEnd = widthEndNum + 1 + len(unitLabel)
	}

	rangeWidth := widthStart + 1
	if showEnd {
		rangeWidth = widthStart + 2 + widthEnd + 1
	}
	baseWidth := rangeWidth + 1 + widthCount + 1 + widthTotal
	barAvailable := 0
	if showBar && baseWidth+1 < maxBarLineWidth {
		barAvailable = maxBarLineWidth - baseWidth - 1
	}

	// Second pass: rows.
	index := 0
	for start := uint64(0); ; start += batch {
		bucket := buckets[start]

		startStr := histogramBoundary(start, unitFactor, unitLabel, widthStartNum)
		var rangeLabel string
		if showEnd {
			endStr := histogramBoundary(start+batch, unitFactor, unitLabel, widthEndNum)
			rangeLabel = format.PadRight(startStr, widthStart) + ".." + format.PadRight(endStr, widthEnd) + ":"
		} else {
			rangeLabel = format.PadRight(startStr, widthStart) + ":"
		}

		totalStr := alignSize(bucketTotalStrings[index], totalDecimalPos, totalSuffixWidth)
		totalStr = format.PadRight(totalStr, widthTotal)

		fmt.Fprintf(w, "%s %s %s",
			format.PadRight(rangeLabel, rangeWidth),
			format.PadLeft(strconv.FormatUint(bucket.count, 10), widthCount),
			totalStr)

		if barAvailable > 0 && maxBucketTotal > 0 {
			barLen := int(bucketTotals[index] * uint64(barAvailable) / maxBucketTotal) //nolint:gosec
			if bucketTotals[index] > 0 && barLen == 0 {
				barLen = 1
			}
			if barLen > 0 {
				fmt.Fprint(w, " ")
				for range barLen {
					fmt.Fprint(w, "#")
				}
			}
		}
		fmt.Fprintln(w)

		index++
		if start >= maxStart {
			break
		}
	}

	return nil
}

func histogramBoundary(value, unitFactor uint64, unitLabel string, numberWidth int) string {
	return format.PadLeft(strconv.FormatUint(value/unitFactor, 10), numberWidth) + " " + unitLabel
}

// alignSize pads a rendered size so decimal points and unit suffixes
// line up across rows.
func alignSize(value string, decimalPos, suffixWidth int) string {
	number, suffix := format.SplitSize(value)
	number = format.AlignDecimalTo(number, decimalPos)
	if suffixWidth == 0 {
		return number
	}

	return number + " " + format.PadRight(suffix, suffixWidth)
}
