package knowledge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Lookup passes, reported to metrics.
const (
	PassExact     = "exact"
	PassSubstring = "substring"
	PassFuzzy     = "fuzzy"
	PassMiss      = "miss"
)

// match runs the three lookup passes over records, returning the matched record
// index and pass, or -1 and PassMiss.
func match(records []QARecord, question string, cutoff float64) (int, string) {
	q := normalize(question)
	// An empty string is a substring of every question.
	if q == "" {
		return -1, PassMiss
	}

	for i, r := range records {
		if normalize(r.Question) == q {
			return i, PassExact
		}
	}
	for i, r := range records {
		if strings.Contains(normalize(r.Question), q) {
			return i, PassSubstring
		}
	}

	best := closestQuestion(question, records, cutoff)
	if best == "" {
		return -1, PassMiss
	}
	for i, r := range records {
		if r.Question == best {
			return i, PassFuzzy
		}
	}
	return -1, PassMiss
}

// closestQuestion returns the stored question most similar to word with a ratio of at
// least cutoff, comparing the raw strings character by character. Equal ratios are
// broken towards the lexically greater question.
func closestQuestion(word string, records []QARecord, cutoff float64) string {
	m := difflib.NewMatcher(nil, chars(word))

	bestRatio := -1.0
	best := ""
	for _, r := range records {
		m.SetSeq1(chars(r.Question))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		ratio := m.Ratio()
		if ratio < cutoff {
			continue
		}
		if ratio > bestRatio || (ratio == bestRatio && r.Question > best) {
			bestRatio, best = ratio, r.Question
		}
	}
	return best
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
