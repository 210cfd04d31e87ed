package knowledge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/rota/internal/websearch"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/metrics"
)

// WebLookup finds pages answering a query. Failures yield no pages.
type WebLookup interface {
	SearchAndExtract(ctx context.Context, query string) []websearch.Page
}

// Config wires a Cache.
type Config struct {
	Store        RecordStore
	Lookup       WebLookup
	Logger       logger.Logger
	Metrics      *metrics.Metrics
	AnswerLength int
	FuzzyCutoff  float64
	Now          func() time.Time
}

// Cache holds the record list in memory and writes it through to the store after
// every change. It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records []QARecord

	store        RecordStore
	lookup       WebLookup
	log          logger.Logger
	metrics      *metrics.Metrics
	answerLength int
	cutoff       float64
	now          func() time.Time
}

// NewCache loads the store. A store that cannot be read starts the cache empty.
func NewCache(ctx context.Context, cfg Config) *Cache {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.AnswerLength <= 0 {
		cfg.AnswerLength = 400
	}
	if cfg.FuzzyCutoff <= 0 {
		cfg.FuzzyCutoff = 0.6
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Cache{
		store:        cfg.Store,
		lookup:       cfg.Lookup,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		answerLength: cfg.AnswerLength,
		cutoff:       cfg.FuzzyCutoff,
		now:          cfg.Now,
	}
	c.records = c.load(ctx)
	return c
}

func (c *Cache) load(ctx context.Context) []QARecord {
	records, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("Failed to load knowledge, starting empty", logger.ErrorField(err))
		return []QARecord{}
	}
	return records
}

// Reload replaces the in-memory snapshot with the store's contents.
func (c *Cache) Reload(ctx context.Context) {
	records := c.load(ctx)
	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
}

// Lookup answers question from the cache, or returns UnknownAnswer.
func (c *Cache) Lookup(question string) string {
	answer, _ := c.LookupPass(question)
	return answer
}

// LookupPass is Lookup that also reports which pass matched.
func (c *Cache) LookupPass(question string) (string, string) {
	c.mu.RLock()
	idx, pass := match(c.records, question, c.cutoff)
	answer := UnknownAnswer
	if idx >= 0 {
		answer = c.records[idx].Answer
	}
	c.mu.RUnlock()

	c.metrics.ObserveLookup(pass)
	return answer, pass
}

// Learn looks question up on the web and stores the first page's text, truncated, as
// the answer. With no pages the record is stored with an empty answer and source.
// added is false when an equal (question, answer) record already existed.
func (c *Cache) Learn(ctx context.Context, question string) (QARecord, bool, error) {
	rec := QARecord{Question: question, Date: c.now().Format(DateLayout)}
	if c.lookup != nil {
		if pages := c.lookup.SearchAndExtract(ctx, question); len(pages) > 0 {
			rec.Answer = Truncate(pages[0].Text, c.answerLength)
			rec.Source = pages[0].URL
		}
	}
	if err := ctx.Err(); err != nil {
		return rec, false, err
	}

	added, err := c.Add(ctx, rec)
	if err != nil {
		return rec, added, err
	}
	if added {
		c.log.Info("Learned answer",
			logger.StringField("question", question),
			logger.StringField("source", rec.Source),
			logger.IntField("answer_length", len(rec.Answer)))
	} else {
		c.log.Debug("Answer already known", logger.StringField("question", question))
	}
	return rec, added, nil
}

// Add stores rec unless its (question, answer) pair is already present, then drops any
// other duplicates and persists. The in-memory list changes only if the save succeeds.
func (c *Cache) Add(ctx context.Context, rec QARecord) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := keyOf(rec)
	for _, r := range c.records {
		if keyOf(r) == k {
			return false, nil
		}
	}

	next, _ := dedupe(append(append([]QARecord(nil), c.records...), rec))
	if err := c.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("failed to save knowledge: %w", err)
	}
	c.records = next
	return true, nil
}

// Deduplicate drops later duplicates, persisting only if something was removed.
func (c *Cache) Deduplicate(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, removed := dedupe(c.records)
	if removed == 0 {
		return 0, nil
	}
	if err := c.store.Save(ctx, next); err != nil {
		return 0, fmt.Errorf("failed to save knowledge: %w", err)
	}
	c.records = next
	c.log.Info("Removed duplicate knowledge", logger.IntField("removed", removed))
	return removed, nil
}

// Records returns a copy of all records in insertion order.
func (c *Cache) Records() []QARecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]QARecord{}, c.records...)
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Answered reports whether a record exists for question, even one with an empty answer.
func (c *Cache) Answered(question string) bool {
	q := normalize(question)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if normalize(r.Question) == q {
			return true
		}
	}
	return false
}
