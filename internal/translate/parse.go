package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

// keys a model tends to wrap the result array in, tried before any other key
var resultWrapperKeys = []string{"results", "translations", "data", "items"}

// parseResults reads a model reply for the given batch. Every input index
// must come back exactly once; the results are returned in input order.
func parseResults(reply string, items []Item) ([]Result, error) {
	reply = cleanJSONResponse(reply)
	if reply == "" {
		return nil, errors.New("empty reply")
	}
	results, err := extractTranslationResults(reply)
	if err != nil {
		return nil, fmt.Errorf("%w (reply: %s)", err, truncateString(reply, 200))
	}
	if len(results) != len(items) {
		return nil, fmt.Errorf("sent %d texts, got %d back", len(items), len(results))
	}

	byIndex := lo.KeyBy(results, func(r Result) int { return r.Index })
	ordered := make([]Result, len(items))
	for i, item := range items {
		r, ok := byIndex[item.Index]
		if !ok {
			return nil, fmt.Errorf("no translation for index %d", item.Index)
		}
		ordered[i] = r
	}
	return ordered, nil
}

func cleanJSONResponse(s string) string {
	s = jsonFenceRegex.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(strings.ReplaceAll(s, "```", ""))
}

// fixInvalidEscapes doubles any backslash that does not start a valid JSON
// escape, so subtitle markup like \N decodes to itself.
func fixInvalidEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)
		if c != '\\' || i+1 == len(s) {
			continue
		}
		if !strings.ContainsRune(`"\/bfnrtu`, rune(s[i+1])) {
			b.WriteByte('\\')
		}
		i++
		b.WriteByte(s[i])
	}
	return b.String()
}

// extractTranslationResults returns the first JSON value in text that holds
// a usable result array, bare or under a wrapper key.
func extractTranslationResults(text string) ([]Result, error) {
	text = fixInvalidEscapes(text)
	for i := strings.IndexAny(text, "[{"); i >= 0; {
		var raw json.RawMessage
		if json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw) == nil {
			if results, ok := tryExtractResults(raw); ok {
				return results, nil
			}
		}
		next := strings.IndexAny(text[i+1:], "[{")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, errors.New("reply holds no translation array")
}

func tryExtractResults(raw json.RawMessage) ([]Result, bool) {
	var results []Result
	if json.Unmarshal(raw, &results) == nil {
		return results, validateResults(results)
	}

	var wrapper map[string]json.RawMessage
	if json.Unmarshal(raw, &wrapper) != nil {
		return nil, false
	}
	others := lo.Without(lo.Keys(wrapper), resultWrapperKeys...)
	slices.Sort(others)
	for _, key := range slices.Concat(resultWrapperKeys, others) {
		field, ok := wrapper[key]
		if !ok {
			continue
		}
		var nested []Result
		if json.Unmarshal(field, &nested) == nil && validateResults(nested) {
			return nested, true
		}
	}
	return nil, false
}

// at least one result carries text
func validateResults(results []Result) bool {
	return lo.SomeBy(results, func(r Result) bool { return r.Text != "" })
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
