// Package engine is the bot's "consciousness": it tracks mood across inputs,
// remembers recent messages, keeps a self-talk log and composes replies.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lewisedginton/rota/internal/mood"
	"github.com/lewisedginton/rota/pkg/logger"
)

// Config wires an Engine. Rand, Sleep and Now default to real implementations.
type Config struct {
	Store         *StateStore
	Logger        logger.Logger
	Creator       string
	Curiosity     float64
	MemoryLimit   int
	SelfTalkLimit int
	ThinkMin      time.Duration
	ThinkMax      time.Duration

	Rand  Rand
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Reply is a composed response and the mood it was composed in.
type Reply struct {
	Text string `json:"response"`
	Mood string `json:"mood"`
}

// Engine is safe for concurrent use. The think delay runs outside the lock.
type Engine struct {
	mu       sync.Mutex
	state    State
	thoughts []Thought

	store         *StateStore
	log           logger.Logger
	composer      Composer
	memoryLimit   int
	selfTalkLimit int
	thinkMin      time.Duration
	thinkMax      time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
}

// New loads the persisted state and returns a ready engine.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: state store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed))
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MemoryLimit <= 0 {
		cfg.MemoryLimit = 100
	}
	if cfg.SelfTalkLimit <= 0 {
		cfg.SelfTalkLimit = 50
	}

	e := &Engine{
		state:         cfg.Store.Load(ctx),
		store:         cfg.Store,
		log:           cfg.Logger,
		composer:      Composer{Creator: cfg.Creator, Curiosity: cfg.Curiosity, Rand: cfg.Rand},
		memoryLimit:   cfg.MemoryLimit,
		selfTalkLimit: cfg.SelfTalkLimit,
		thinkMin:      cfg.ThinkMin,
		thinkMax:      cfg.ThinkMax,
		sleep:         cfg.Sleep,
		now:           cfg.Now,
	}
	e.log.Info("Engine state loaded",
		logger.StringField("mood", e.state.Mood),
		logger.IntField("memories", len(e.state.Memory)))
	return e, nil
}

// Respond records input and updates the mood from it, thinks for a moment, then
// composes a reply in the new mood. The state is persisted before thinking, so a
// cancelled think still remembers the message. A persistence error is returned
// alongside a valid reply.
func (e *Engine) Respond(ctx context.Context, input string) (Reply, error) {
	now, current, saveErr := e.remember(ctx, input)

	if err := e.sleep(ctx, e.thinkDelay()); err != nil {
		return Reply{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	text := e.composer.Compose(input, current)
	reply := Reply{Text: text, Mood: current}

	e.thoughts = append(e.thoughts, Thought{
		Timestamp: now.Format(TimestampLayout),
		UserInput: input,
		Response:  text,
		Mood:      current,
	})
	if len(e.thoughts) > e.selfTalkLimit {
		e.thoughts = append([]Thought(nil), e.thoughts[len(e.thoughts)-e.selfTalkLimit:]...)
	}

	e.log.Debug("Composed reply", logger.StringField("mood", reply.Mood))
	return reply, saveErr
}

// remember appends input to memory, reclassifies the mood and saves the state.
func (e *Engine) remember(ctx context.Context, input string) (time.Time, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.state.Record(input, now, e.memoryLimit)
	e.state.Mood = mood.Classify(input)
	return now, e.state.Mood, e.store.Save(ctx, e.state)
}

// Mood returns the current mood label.
func (e *Engine) Mood() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Mood
}

// State returns a copy of the persisted part of the engine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Thoughts returns a copy of the self-talk log, oldest first.
func (e *Engine) Thoughts() []Thought {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Thought{}, e.thoughts...)
}

// thinkDelay draws uniformly from [thinkMin, thinkMax].
func (e *Engine) thinkDelay() time.Duration {
	if e.thinkMax <= e.thinkMin {
		return e.thinkMin
	}
	e.mu.Lock()
	f := e.composer.Rand.Float64()
	e.mu.Unlock()
	return e.thinkMin + time.Duration(f*float64(e.thinkMax-e.thinkMin))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
