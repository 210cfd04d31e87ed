package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeErrorChans(t *testing.T) {
	a := make(chan error, 1)
	b := make(chan error, 2)
	a <- errors.New("a")
	b <- errors.New("b1")
	b <- errors.New("b2")
	close(a)
	close(b)

	var got []string
	for err := range MergeErrorChans(a, nil, b) {
		got = append(got, err.Error())
	}
	assert.ElementsMatch(t, []string{"a", "b1", "b2"}, got)
}

func TestMergeErrorChans_Empty(t *testing.T) {
	_, ok := <-MergeErrorChans()
	assert.False(t, ok)
}
