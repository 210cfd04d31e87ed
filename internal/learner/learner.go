package learner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/metrics"
)

// ErrBatchRunning is returned when a batch is requested while another is in progress.
var ErrBatchRunning = errors.New("a learning batch is already running")

// Knowledge is the part of the knowledge cache the learner writes to.
type Knowledge interface {
	Learn(ctx context.Context, question string) (knowledge.QARecord, bool, error)
	Add(ctx context.Context, rec knowledge.QARecord) (bool, error)
	Answered(question string) bool
}

// NewsSource lists and extracts news articles.
type NewsSource interface {
	NewsLinks(ctx context.Context, query string, n int) []string
	ExtractText(ctx context.Context, url string) string
}

// Config wires a Learner.
type Config struct {
	Knowledge    Knowledge
	News         NewsSource
	Logger       logger.Logger
	Metrics      *metrics.Metrics
	AnswerLength int
	Now          func() time.Time
}

// Learner runs learning jobs against a knowledge cache. One question is one job.
type Learner struct {
	knowledge    Knowledge
	news         NewsSource
	log          logger.Logger
	metrics      *metrics.Metrics
	answerLength int
	now          func() time.Time

	batch sync.Mutex
}

func New(cfg Config) *Learner {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.AnswerLength <= 0 {
		cfg.AnswerLength = 400
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Learner{
		knowledge:    cfg.Knowledge,
		news:         cfg.News,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		answerLength: cfg.AnswerLength,
		now:          cfg.Now,
	}
}

// BatchOptions controls a batch run.
type BatchOptions struct {
	// Interval is the minimum spacing between question starts.
	Interval time.Duration
	// SkipAnswered drops questions that already have a record before the run starts.
	SkipAnswered bool
}

// BatchResult summarises a batch run.
type BatchResult struct {
	Attempted int `json:"attempted"`
	Learned   int `json:"learned"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Batch states reported to callers that do not wait for a batch to finish.
const (
	BatchDone    = "done"
	BatchRunning = "running"
)

// LearnBatch learns each question in order. Only one batch runs at a time; a second
// caller gets ErrBatchRunning. Cancelling ctx stops the run and returns what was done.
func (l *Learner) LearnBatch(ctx context.Context, questions []string, opts BatchOptions) (BatchResult, error) {
	if !l.batch.TryLock() {
		return BatchResult{}, ErrBatchRunning
	}
	defer l.batch.Unlock()

	var result BatchResult
	pending := questions
	if opts.SkipAnswered {
		pending = make([]string, 0, len(questions))
		for _, q := range questions {
			if l.knowledge.Answered(q) {
				result.Skipped++
				continue
			}
			pending = append(pending, q)
		}
	}
	if len(pending) == 0 {
		l.log.Info("All questions already have answers")
		return result, nil
	}

	limiter := newLimiter(opts.Interval)
	l.log.Info("Starting learning batch",
		logger.IntField("questions", len(pending)),
		logger.IntField("skipped", result.Skipped),
		logger.DurationField("interval", opts.Interval))

	for i, q := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}
		l.log.Info("Learning question",
			logger.IntField("index", i+1),
			logger.IntField("total", len(pending)),
			logger.StringField("question", q))

		result.Attempted++
		added, err := l.learnOne(ctx, q)
		switch {
		case err != nil && ctx.Err() != nil:
			return result, ctx.Err()
		case err != nil:
			result.Failed++
		case added:
			result.Learned++
		}
	}

	l.log.Info("Learning batch complete",
		logger.IntField("attempted", result.Attempted),
		logger.IntField("learned", result.Learned),
		logger.IntField("failed", result.Failed))
	return result, nil
}

// ContinuousLearn learns questions from source until ctx is cancelled or the source is
// exhausted, spacing questions by interval. Exhaustion returns nil.
func (l *Learner) ContinuousLearn(ctx context.Context, source QuestionSource, interval time.Duration) error {
	limiter := newLimiter(interval)
	l.log.Info("Continuous learner started", logger.DurationField("interval", interval))
	for {
		if err := limiter.Wait(ctx); err != nil {
			l.log.Info("Continuous learner stopped")
			return nil
		}

		q, err := source.Next(ctx)
		if errors.Is(err, ErrSourceExhausted) {
			l.log.Info("Question source exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get next question: %w", err)
		}

		if _, err := l.learnOne(ctx, q); err != nil && ctx.Err() == nil {
			l.log.Warn("Failed to learn question",
				logger.StringField("question", q),
				logger.ErrorField(err))
		}
	}
}

// LearnFromNews stores up to n news articles for query, each as a record whose question
// is "News: <query>". It returns how many records were added.
func (l *Learner) LearnFromNews(ctx context.Context, query string, n int) (int, error) {
	if l.news == nil {
		return 0, errors.New("news source is not configured")
	}

	question := "News: " + query
	added := 0
	for _, url := range l.news.NewsLinks(ctx, query, n) {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		text := l.news.ExtractText(ctx, url)
		if text == "" {
			l.log.Debug("No content extracted from article", logger.StringField("url", url))
			continue
		}

		l.metrics.IncJob(metrics.JobMetricTotal)
		ok, err := l.knowledge.Add(ctx, knowledge.QARecord{
			Question: question,
			Answer:   knowledge.Truncate(text, l.answerLength),
			Source:   url,
			Date:     l.now().Format(knowledge.DateLayout),
		})
		if err != nil {
			l.metrics.IncJob(metrics.JobMetricTotalFailed)
			return added, err
		}
		l.metrics.IncJob(metrics.JobMetricTotalSuccess)
		if ok {
			added++
		}
	}
	l.log.Info("News learning complete",
		logger.StringField("query", query),
		logger.IntField("added", added))
	return added, nil
}

func (l *Learner) learnOne(ctx context.Context, question string) (bool, error) {
	question = strings.TrimSpace(question)
	l.metrics.IncJob(metrics.JobMetricTotal)

	rec, added, err := l.knowledge.Learn(ctx, question)
	switch {
	case err != nil && ctx.Err() != nil:
		l.metrics.IncJob(metrics.JobMetricTotalKilled)
		return false, err
	case err != nil:
		l.metrics.IncJob(metrics.JobMetricTotalFailed)
		l.log.Warn("Failed to learn question",
			logger.StringField("question", question),
			logger.ErrorField(err))
		return false, err
	}

	l.metrics.IncJob(metrics.JobMetricTotalSuccess)
	if rec.Answer == "" {
		l.log.Info("No answer found", logger.StringField("question", question))
	}
	return added, nil
}

// newLimiter lets the first wait through at once and spaces later ones by interval.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
