package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

const (
	msPerHour   = 3_600_000
	msPerMinute = 60_000
	msPerSecond = 1_000
)

var timestampPattern = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})[,.](\d{3})$`)

// FormatTimestamp renders an offset in seconds as HH:MM:SS,mmm.
//
// Seconds are converted to whole milliseconds with round-half-to-even, so
// 0.0005 renders as 00:00:00,000. The hour field is at least two digits wide
// and grows as needed.
func FormatTimestamp(seconds float64) (string, error) {
	return formatWithSeparator(seconds, ',')
}

// FormatVTTTimestamp is FormatTimestamp with the WebVTT millisecond separator.
func FormatVTTTimestamp(seconds float64) (string, error) {
	return formatWithSeparator(seconds, '.')
}

func formatWithSeparator(seconds float64, sep byte) (string, error) {
	ms, err := toMilliseconds(seconds)
	if err != nil {
		return "", err
	}

	hours := ms / msPerHour
	ms %= msPerHour
	minutes := ms / msPerMinute
	ms %= msPerMinute
	secs := ms / msPerSecond
	ms %= msPerSecond

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, ms), nil
}

func toMilliseconds(seconds float64) (int64, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, seconds)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("%w: %v is negative", ErrInvalidTimestamp, seconds)
	}
	return int64(math.RoundToEven(seconds * 1000)), nil
}

// ParseTimestamp reads HH:MM:SS,mmm (or the WebVTT HH:MM:SS.mmm form) back
// into seconds.
func ParseTimestamp(s string) (float64, error) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	var parts [4]int64
	for i := range parts {
		v, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		parts[i] = v
	}
	if parts[1] > 59 || parts[2] > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
	}

	ms := parts[0]*msPerHour + parts[1]*msPerMinute + parts[2]*msPerSecond + parts[3]
	return float64(ms) / 1000, nil
}
