package engine

import (
	"time"

	"github.com/lewisedginton/rota/internal/mood"
)

// TimestampLayout renders entry timestamps as local time with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// MemoryEntry is one remembered input and the mood the bot was in when it arrived.
type MemoryEntry struct {
	Timestamp string `json:"timestamp"`
	Input     string `json:"input"`
	Mood      string `json:"mood"`
}

// State is the persisted engine document.
type State struct {
	Mood   string        `json:"mood"`
	Memory []MemoryEntry `json:"memory"`
}

// DefaultState is neutral with no memory.
func DefaultState() State {
	return State{Mood: mood.Neutral, Memory: []MemoryEntry{}}
}

// Record appends input under the current mood and keeps only the newest limit entries.
func (s *State) Record(input string, at time.Time, limit int) {
	s.Memory = append(s.Memory, MemoryEntry{
		Timestamp: at.Format(TimestampLayout),
		Input:     input,
		Mood:      s.Mood,
	})
	if limit > 0 && len(s.Memory) > limit {
		s.Memory = append([]MemoryEntry(nil), s.Memory[len(s.Memory)-limit:]...)
	}
}

func (s State) clone() State {
	out := State{Mood: s.Mood, Memory: make([]MemoryEntry, len(s.Memory))}
	copy(out.Memory, s.Memory)
	return out
}

// Thought is one self-talk log line: what was heard, what was said, in which mood.
type Thought struct {
	Timestamp string `json:"timestamp"`
	UserInput string `json:"user_input"`
	Response  string `json:"response"`
	Mood      string `json:"mood"`
}
