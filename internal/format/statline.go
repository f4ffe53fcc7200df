package format

import (
	"fmt"
	"io"
	"strings"
)

// StatLine is one row of a label/value/extra statistics block.
type StatLine struct {
	Label string
	Value string
	Extra string
}

// statDecimalPos locates the decimal point within the leading number of
// a value like "1.234 kB (5.6%)", ignoring the unit suffix.
func statDecimalPos(value string) int {
	number := value
	if end := strings.IndexByte(value, ' '); end >= 0 {
		number = value[:end]
	}

	return DecimalPos(number)
}

func alignStatValue(value string, labelWidth, decimalCol int) string {
	currentCol := labelWidth + 1 + statDecimalPos(value)
	if decimalCol <= currentCol {
		return value
	}

	return strings.Repeat(" ", decimalCol-currentCol) + value
}

// RenderStatLines writes a block of stat lines with labels left-aligned
// and value decimal points in a common column.
func RenderStatLines(w io.Writer, lines []StatLine) {
	labelWidth := 0
	maxDecimalPos := 0
	maxExtraDecimalPos := 0
	for _, line := range lines {
		labelWidth = max(labelWidth, len(line.Label))
		maxDecimalPos = max(maxDecimalPos, statDecimalPos(line.Value))
		if line.Extra != "" {
			maxExtraDecimalPos = max(maxExtraDecimalPos, statDecimalPos(line.Extra))
		}
	}
	decimalCol := labelWidth + 1 + maxDecimalPos
	extraCol := labelWidth + 1 + maxExtraDecimalPos

	alignedValues := make([]string, 0, len(lines))
	alignedExtras := make([]string, 0, len(lines))
	maxValueWidth := 0
	for _, line := range lines {
		value := alignStatValue(line.Value, labelWidth, decimalCol)
		maxValueWidth = max(maxValueWidth, len(value))
		alignedValues = append(alignedValues, value)

		if line.Extra != "" {
			alignedExtras = append(alignedExtras, alignStatValue(line.Extra, labelWidth, extraCol))
		} else {
			alignedExtras = append(alignedExtras, "")
		}
	}

	for i, line := range lines {
		out := PadRight(line.Label, labelWidth) + " " + alignedValues[i]
		if line.Extra != "" {
			out += strings.Repeat(" ", maxValueWidth-len(alignedValues[i]))
			out += " " + alignedExtras[i]
		}
		fmt.Fprintln(w, out)
	}
}
