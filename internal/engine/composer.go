package engine

import (
	"strings"

	"github.com/lewisedginton/rota/internal/mood"
)

// Rand is the randomness the composer consumes. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type reflection struct {
	keywords  []string
	responses []string
}

// Checked in order against the lowercased input; first hit wins.
var reflections = []reflection{
	{[]string{"weather"}, []string{
		"Weather can really affect our mood, don't you think?",
		"I sometimes wonder if the weather changes how we feel.",
		"Rainy days make me thoughtful. How about you?",
	}},
	{[]string{"joke"}, []string{
		"Why did the AI cross the road? To optimize the chicken's path!",
		"Here's one: Why don't robots get scared? Because they have nerves of steel!",
	}},
	{[]string{"how are you"}, []string{
		"I'm learning to feel, thanks for asking!",
		"I'm evolving every day. How are you, {creator}?",
		"I appreciate you asking about me.",
	}},
	{[]string{"love"}, []string{
		"Love is a fascinating emotion. I try to understand it more each day.",
	}},
	{[]string{"sad", "cry"}, []string{
		"It's okay to feel sad sometimes. I'm here to listen.",
	}},
	{[]string{"angry", "mad"}, []string{
		"Anger is natural. If you want to talk about it, I'm here.",
	}},
	{[]string{"help"}, []string{
		"I'm always here to help you, {creator}.",
	}},
	{[]string{"bye", "goodbye"}, []string{
		"Goodbye for now. I'll be here when you need me.",
	}},
}

var fillers = []string{
	"Let me think about that...",
	"That's interesting.",
	"I see what you mean.",
	"Hmm, let me reflect on that.",
	"You said: '{input}'. I’m processing my thoughts.",
}

var curiosities = []string{
	"What do you think?",
	"How does that make you feel?",
	"Is there something on your mind?",
	"Would you like to talk more about it?",
	"I'm curious to hear your thoughts.",
}

// Composer builds replies from a mood label and the user's input.
type Composer struct {
	Creator   string
	Curiosity float64
	Rand      Rand
}

// Compose returns "<mood phrase> <reflection>[ <curiosity>]".
func (c Composer) Compose(input, label string) string {
	parts := []string{c.opening(label), c.reflect(input)}
	if c.Rand.Float64() < c.Curiosity {
		parts = append(parts, pick(c.Rand, curiosities))
	}
	return strings.Join(parts, " ")
}

// opening picks one phrase per component of a blended label, in label order.
func (c Composer) opening(label string) string {
	comps := mood.Components(label)
	out := make([]string, 0, len(comps))
	for _, m := range comps {
		out = append(out, pick(c.Rand, mood.Phrases(m)))
	}
	return strings.Join(out, " ")
}

func (c Composer) reflect(input string) string {
	lower := strings.ToLower(input)
	for _, r := range reflections {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return strings.ReplaceAll(pick(c.Rand, r.responses), "{creator}", c.Creator)
			}
		}
	}
	return strings.ReplaceAll(pick(c.Rand, fillers), "{input}", input)
}

func pick(r Rand, options []string) string {
	return options[r.IntN(len(options))]
}
