package views

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timeLabelPattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*([AaPp])\.?[Mm]\.?\s*$`)

// NormalizeTimeLabel converts a user-entered "h:mm AM/PM" label into a
// zero-padded 24-hour "HH:MM" sort key. The 12 o'clock rows are the trap:
// "12:xx AM" is midnight (hour 0) and "12:xx PM" is noon (hour 12), so 12
// maps to 0 before the PM offset is applied.
func NormalizeTimeLabel(label string) (string, bool) {
	m := timeLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return "", false
	}
	if hour == 12 {
		hour = 0
	}
	if strings.EqualFold(m[3], "p") {
		hour += 12
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// CompareTimeLabels orders two labels by their normalized keys.
// Unparseable labels sort after parseable ones, then by raw string.
func CompareTimeLabels(a, b string) int {
	na, okA := NormalizeTimeLabel(a)
	nb, okB := NormalizeTimeLabel(b)
	switch {
	case okA && okB:
		return strings.Compare(na, nb)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
