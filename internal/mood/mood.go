// Package mood classifies free text into a mood label and holds the phrases the
// composer speaks for each mood.
package mood

import (
	"strings"
)

// Base mood labels. A blended label joins tied moods with Separator.
const (
	Happy   = "happy"
	Sad     = "sad"
	Angry   = "angry"
	Worried = "worried"
	Neutral = "neutral"

	Separator = "/"
)

// Order is the fixed enumeration order used for scoring and tie output.
var Order = []string{Happy, Sad, Angry, Worried}

var keywords = map[string][]string{
	Happy:   {"happy", "joy", "great", "good", "love", "excited", "wonderful", "amazing", "smile"},
	Sad:     {"sad", "down", "unhappy", "depressed", "cry", "lonely", "blue", "miss"},
	Angry:   {"angry", "mad", "upset", "hate", "annoyed", "furious", "irritated", "rage"},
	Worried: {"worried", "anxious", "nervous", "scared", "afraid", "concerned", "stressed"},
}

// Keywords returns a copy of the keyword list for m.
func Keywords(m string) []string {
	return append([]string(nil), keywords[m]...)
}

// Scores counts, per mood, how many of its keywords occur as substrings of the
// lowercased text. Matching is substring containment, so "sadness" scores for sad.
func Scores(text string) map[string]int {
	lower := strings.ToLower(text)
	scores := make(map[string]int, len(Order))
	for _, m := range Order {
		for _, kw := range keywords[m] {
			if strings.Contains(lower, kw) {
				scores[m]++
			}
		}
	}
	return scores
}

// Classify returns the mood label for text: neutral when nothing matches, the single
// top mood, or the tied top moods joined by "/" in Order.
func Classify(text string) string {
	scores := Scores(text)

	best := 0
	for _, m := range Order {
		if scores[m] > best {
			best = scores[m]
		}
	}
	if best == 0 {
		return Neutral
	}

	var top []string
	for _, m := range Order {
		if scores[m] == best {
			top = append(top, m)
		}
	}
	return strings.Join(top, Separator)
}

// Components splits a possibly blended label into its moods.
func Components(label string) []string {
	return strings.Split(label, Separator)
}

// Emoji is the display glyph for the first component of label.
func Emoji(label string) string {
	switch Components(label)[0] {
	case Happy:
		return "😊"
	case Sad:
		return "😔"
	case Angry:
		return "😠"
	case Worried:
		return "😟"
	default:
		return "🤖"
	}
}
