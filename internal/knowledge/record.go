// Package knowledge is the bot's learned Q&A cache: lookup with exact, substring and
// fuzzy passes, learning from web lookups, and duplicate suppression.
package knowledge

import (
	"strings"
	"unicode/utf8"
)

// DateLayout matches the date strings written into stored records.
const DateLayout = "2006-01-02 15:04:05.000000"

// UnknownAnswer is returned by Lookup when nothing matches.
const UnknownAnswer = "Sorry, I don't know the answer to that yet."

// QARecord is one learned question and answer. Source is the page the answer came
// from and may be empty.
type QARecord struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
	Date     string `json:"date"`
}

// normalize lowercases and trims for comparisons.
func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

type recordKey struct{ question, answer string }

func keyOf(r QARecord) recordKey {
	return recordKey{normalize(r.Question), normalize(r.Answer)}
}

// Truncate cuts s to limit characters, appending "..." when something was cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// dedupe keeps the first record for each (question, answer) key, in order.
func dedupe(records []QARecord) ([]QARecord, int) {
	seen := make(map[recordKey]struct{}, len(records))
	out := make([]QARecord, 0, len(records))
	for _, r := range records {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}
