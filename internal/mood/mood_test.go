package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", Neutral},
		{"no keywords", "the train leaves at noon", Neutral},
		{"single happy", "I am so happy and excited today", Happy},
		{"case insensitive", "I feel SAD", Sad},
		{"substring match", "sadness everywhere", Sad},
		{"angry beats sad", "I hate this, I'm furious and a bit down", Angry},
		{"two way tie", "happy but worried", Happy + "/" + Worried},
		{"tie order fixed", "nervous, then angry", Angry + "/" + Worried},
		{"four way tie", "joy cry rage scared", "happy/sad/angry/worried"},
		{"keyword counted once", "happy happy happy sad lonely", Sad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestScores(t *testing.T) {
	s := Scores("Good news, I'm happy but a little stressed")
	assert.Equal(t, 2, s[Happy])
	assert.Equal(t, 0, s[Sad])
	assert.Equal(t, 1, s[Worried])
}

func TestPhrases(t *testing.T) {
	for _, m := range append(Order, Neutral) {
		assert.Len(t, Phrases(m), 3, m)
	}
	assert.Equal(t, Phrases(Neutral), Phrases("confused"))
}

func TestEmoji(t *testing.T) {
	assert.Equal(t, "😊", Emoji("happy"))
	assert.Equal(t, "😔", Emoji("sad/angry"))
	assert.Equal(t, "😠", Emoji("angry"))
	assert.Equal(t, "😟", Emoji("worried"))
	assert.Equal(t, "🤖", Emoji("neutral"))
	assert.Equal(t, "🤖", Emoji(""))
}

func TestComponents(t *testing.T) {
	assert.Equal(t, []string{"happy", "sad"}, Components("happy/sad"))
	assert.Equal(t, []string{"neutral"}, Components("neutral"))
}
