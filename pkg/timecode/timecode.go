// Package timecode converts between second counts and human-readable
// M:SS / H:MM:SS timecode strings.
package timecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	secondsPerMinute = 60
	minutesPerHour   = 60
	secondsPerHour   = secondsPerMinute * minutesPerHour
)

// inputRegex accepts an optional hour component followed by minutes and a
// two-digit seconds component: (H:)?MM:SS.
var inputRegex = regexp.MustCompile(`^(\d{1,2}:)?\d{1,2}:\d{2}$`)

// ParseSeconds converts a timecode string to a total second count.
// Components are interpreted right-to-left as seconds, minutes, hours;
// missing leading components default to zero. Parsing is total: empty or
// non-numeric input yields 0, never an error.
func ParseSeconds(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	parts := strings.Split(text, ":")
	multipliers := []int{1, secondsPerMinute, secondsPerHour}
	if len(parts) > len(multipliers) {
		return 0
	}

	total := 0
	for i := 0; i < len(parts); i++ {
		part := strings.TrimSpace(parts[len(parts)-1-i])
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return 0
		}
		total += value * multipliers[i]
	}

	return total
}

// FormatSeconds renders a non-negative second count as M:SS, or H:MM:SS once
// the count reaches an hour. Hours are unpadded; the components after the
// leading one are zero-padded to two digits.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / secondsPerHour
	minutes := (seconds % secondsPerHour) / secondsPerMinute
	secs := seconds % secondsPerMinute

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// Validate reports whether text is an acceptable timecode input. The empty
// string is always accepted and means "no constraint".
func Validate(text string) bool {
	if text == "" {
		return true
	}
	return inputRegex.MatchString(text)
}
