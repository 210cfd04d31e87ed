// Package sessionid builds conversation IDs of the form "<source>-<uuid>", where
// source names the front end the conversation arrived on.
package sessionid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID identifies one conversation.
type ID struct {
	Source string
	UUID   uuid.UUID
}

// New returns a random ID for a one-off conversation such as a websocket.
func New(source string) ID {
	return ID{Source: source, UUID: uuid.New()}
}

// Derive returns the same ID every time it is given the same source and parts,
// so a chat platform user keeps one session per channel.
func Derive(source string, parts ...string) ID {
	name := source + ":" + strings.Join(parts, ":")
	return ID{Source: source, UUID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))}
}

// Parse reads the String form back.
func Parse(s string) (ID, error) {
	source, raw, ok := strings.Cut(s, "-")
	if !ok || source == "" {
		return ID{}, fmt.Errorf("invalid session id %q", s)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ID{}, fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return ID{Source: source, UUID: id}, nil
}

func (id ID) String() string {
	return id.Source + "-" + id.UUID.String()
}

func (id ID) IsZero() bool {
	return id.Source == "" && id.UUID == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler, so IDs render as strings in
// JSON and YAML.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
