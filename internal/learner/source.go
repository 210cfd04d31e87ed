// Package learner fills the knowledge cache from web lookups: batch runs over a question
// list, an open-ended loop over a question source, and news articles.
package learner

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceExhausted is returned by a QuestionSource with nothing more to ask.
var ErrSourceExhausted = errors.New("question source exhausted")

// QuestionSource yields the next question to learn.
type QuestionSource interface {
	Next(ctx context.Context) (string, error)
}

// ListSource cycles through a fixed list, restarting at the beginning once every
// question has been asked. An empty list is exhausted immediately.
type ListSource struct {
	mu        sync.Mutex
	questions []string
	idx       int
}

func NewListSource(questions []string) *ListSource {
	return &ListSource{questions: append([]string(nil), questions...)}
}

func (s *ListSource) Next(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return "", ErrSourceExhausted
	}
	if s.idx >= len(s.questions) {
		s.idx = 0
	}
	q := s.questions[s.idx]
	s.idx++
	return q, nil
}

// SupplierFunc adapts a function to a QuestionSource. The function is called for
// every question and ends the sequence by returning ErrSourceExhausted.
type SupplierFunc func(ctx context.Context) (string, error)

func (f SupplierFunc) Next(ctx context.Context) (string, error) {
	return f(ctx)
}
