package sessionid

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New("ws"), New("ws")
	assert.Equal(t, "ws", a.Source)
	assert.NotEqual(t, uuid.Nil, a.UUID)
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsZero())
	assert.True(t, ID{}.IsZero())
}

func TestDerive(t *testing.T) {
	assert.Equal(t, Derive("slack", "U1", "C1"), Derive("slack", "U1", "C1"))
	assert.NotEqual(t, Derive("slack", "U1", "C1"), Derive("slack", "C1", "U1"))
	assert.NotEqual(t, Derive("slack", "U1"), Derive("telegram", "U1"))
}

func TestParse(t *testing.T) {
	id := ID{Source: "cli", UUID: uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")}
	assert.Equal(t, "cli-123e4567-e89b-12d3-a456-426614174000", id.String())

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	for _, bad := range []string{"", "cli", "-123e4567-e89b-12d3-a456-426614174000", "cli-not-a-uuid"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestJSON(t *testing.T) {
	type envelope struct {
		Session ID `json:"session"`
	}
	in := envelope{Session: New("telegram")}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session":"telegram-`)

	var out envelope
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"session":"nope"}`), &out))
}
