package subtitle

import (
	"strings"
	"unicode/utf8"
)

// wrapText breaks a cue longer than maxChars into two lines at the word
// boundary nearest its middle. Cues that already span lines are kept as is.
func wrapText(text string, maxChars int) string {
	n := utf8.RuneCountInString(text)
	if n <= maxChars || strings.Contains(text, "\n") {
		return text
	}
	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	split, best := 0, n
	prefix := -1 // no separator before the first word
	for i := range len(words) - 1 {
		prefix += 1 + utf8.RuneCountInString(words[i])
		if d := distance(prefix, n/2); d < best {
			split, best = i+1, d
		}
	}
	return strings.Join(words[:split], " ") + "\n" + strings.Join(words[split:], " ")
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
