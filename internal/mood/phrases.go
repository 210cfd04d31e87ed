package mood

var phrases = map[string][]string{
	Happy: {
		"I'm feeling cheerful today!",
		"I'm in a great mood!",
		"Life feels good right now.",
	},
	Sad: {
		"I'm feeling a bit down.",
		"Things feel a little heavy.",
		"I'm not at my best, but I'm here for you.",
	},
	Angry: {
		"I'm a bit upset.",
		"Something's bothering me.",
		"I'm feeling some frustration.",
	},
	Worried: {
		"I'm feeling worried.",
		"I'm a bit anxious.",
		"I'm concerned about things.",
	},
	Neutral: {
		"I'm feeling neutral.",
		"I'm steady.",
		"I'm here, present with you.",
	},
}

// Phrases returns the opening phrases for a single mood. Unknown moods get the
// neutral list.
func Phrases(m string) []string {
	if p, ok := phrases[m]; ok {
		return p
	}
	return phrases[Neutral]
}
