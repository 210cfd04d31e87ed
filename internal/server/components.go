package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	appconfig "github.com/lewisedginton/rota/internal/config"
	"github.com/lewisedginton/rota/internal/connectors/executor"
	"github.com/lewisedginton/rota/internal/engine"
	"github.com/lewisedginton/rota/internal/knowledge"
	"github.com/lewisedginton/rota/internal/knowledge/postgres"
	"github.com/lewisedginton/rota/internal/learner"
	"github.com/lewisedginton/rota/internal/storage_manager"
	"github.com/lewisedginton/rota/internal/websearch"
	"github.com/lewisedginton/rota/pkg/logger"
	"github.com/lewisedginton/rota/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Components is the bot without any front end: everything the CLI, the HTTP API
// and the chat connectors share.
type Components struct {
	Config  *appconfig.AppConfig
	Log     logger.Logger
	Metrics *metrics.Metrics

	Storage   *storage_manager.StorageManager
	Redis     *redis.Client
	Pool      *pgxpool.Pool
	Postgres  *postgres.Store
	Records   knowledge.RecordStore
	Engine    *engine.Engine
	Knowledge *knowledge.Cache
	Web       *websearch.Lookup
	Learner   *learner.Learner
	Executor  *executor.Executor

	// Batches run on ctx so they outlive the request that started them.
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// Build wires the components described by cfg. Close releases what it opened.
func Build(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Components, error) {
	c := &Components{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.NewMetrics(metrics.Options{HTTP: cfg.Metrics.EnableHTTPMetrics, Jobs: cfg.Metrics.EnableJobMetrics}, log),
	}
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))

	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	if err := c.buildStorage(ctx); err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}
	provider := c.Storage.GetProvider(cfg.Storage.Namespace)

	if err := c.buildRecordStore(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to create knowledge store: %w", err)
	}

	var err error
	c.Engine, err = engine.New(ctx, engine.Config{
		Store:         engine.NewStateStore(provider, cfg.Engine.StateFile, log),
		Logger:        log,
		Creator:       cfg.Persona.Creator,
		Curiosity:     cfg.Engine.CuriosityProbability,
		MemoryLimit:   cfg.Engine.MemoryLimit,
		SelfTalkLimit: cfg.Engine.SelfTalkLimit,
		ThinkMin:      cfg.Engine.ThinkMin,
		ThinkMax:      cfg.Engine.ThinkMax,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	c.Web = websearch.New(websearch.Config{
		APIKey:      cfg.Search.APIKey,
		BaseURL:     cfg.Search.BaseURL,
		Engine:      cfg.Search.Engine,
		NumResults:  cfg.Search.NumResults,
		Timeout:     cfg.Search.Timeout,
		PageTimeout: cfg.Search.PageTimeout,
		NewsBaseURL: cfg.Search.NewsBaseURL,
		UserAgent:   cfg.Search.UserAgent,
	}, log)
	if !cfg.Search.Enabled() {
		log.Warn("SEARCHAPI_API_KEY not set; learning will store empty answers")
	}

	c.Knowledge = knowledge.NewCache(ctx, knowledge.Config{
		Store:        c.Records,
		Lookup:       c.Web,
		Logger:       log,
		Metrics:      c.Metrics,
		AnswerLength: cfg.Knowledge.AnswerLength,
		FuzzyCutoff:  cfg.Knowledge.FuzzyCutoff,
	})

	c.Learner = learner.New(learner.Config{
		Knowledge:    c.Knowledge,
		News:         c.Web.Extractor(),
		Logger:       log,
		Metrics:      c.Metrics,
		AnswerLength: cfg.Knowledge.AnswerLength,
	})

	c.Executor, err = executor.NewExecutor(executor.Config{
		Engine:            c.Engine,
		Knowledge:         c.Knowledge,
		Web:               c.Web,
		Relearn:           executor.RelearnFunc(c.Relearn),
		Persona:           cfg.Persona.Name,
		FactualMode:       cfg.Knowledge.FactualMode,
		LiveExcerptLength: cfg.Knowledge.LiveExcerptLength,
		Logger:            log,
		Metrics:           c.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	log.Info("Components ready",
		logger.StringField("storage_backend", string(c.Storage.Backend())),
		logger.StringField("knowledge_backend", cfg.Knowledge.Backend),
		logger.StringField("factual_mode", cfg.Knowledge.FactualMode),
		logger.IntField("records", c.Knowledge.Len()))

	ok = true
	return c, nil
}

func (c *Components) buildStorage(ctx context.Context) error {
	cfg := c.Config
	if cfg.Storage.Backend == string(storage_manager.BackendRedis) || cfg.Redis.Addr != "" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.Timeout,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
	}

	smCfg := storage_manager.Config{
		Backend:   storage_manager.BackendType(cfg.Storage.Backend),
		LocalDir:  cfg.Storage.LocalDir,
		S3Bucket:  cfg.Storage.S3Bucket,
		S3Prefix:  cfg.Storage.S3Prefix,
		S3Region:  cfg.Storage.S3Region,
		S3Profile: cfg.Storage.S3Profile,
		Git: storage_manager.GitProviderOptions{
			Path:        cfg.Storage.GitPath,
			AuthorName:  cfg.Storage.GitAuthorName,
			AuthorEmail: cfg.Storage.GitAuthorEmail,
		},
		RedisKeyPrefix: cfg.Storage.RedisKeyPrefix,
	}
	if c.Redis != nil {
		smCfg.Redis = c.Redis
	}

	sm, err := storage_manager.New(ctx, smCfg)
	if err != nil {
		return err
	}
	c.Storage = sm
	c.Log.Info("Storage ready", logger.StringField("backend", string(sm.Backend())))
	return nil
}

func (c *Components) buildRecordStore(ctx context.Context, provider storage_manager.FileProvider) error {
	cfg := c.Config
	if cfg.Knowledge.Backend != appconfig.KnowledgeBackendPostgres {
		c.Records = knowledge.NewFileStore(provider, cfg.Knowledge.File)
		return nil
	}

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	c.Pool = pool

	if cfg.Knowledge.MigrateOnStart {
		if err := postgres.NewMigrationManager(pool, c.Log).RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	c.Postgres = postgres.NewStore(pool, c.Log)
	c.Records = c.Postgres
	return nil
}

// Questions reads the configured question file from the local filesystem.
func (c *Components) Questions(ctx context.Context) []string {
	return c.QuestionsFrom(ctx, c.Config.Learner.QuestionsFile)
}

// QuestionsFrom parses path, falling back to the default questions.
func (c *Components) QuestionsFrom(ctx context.Context, path string) []string {
	provider := storage_manager.NewLocalFileProvider(filepath.Dir(path))
	return learner.LoadQuestions(ctx, provider, filepath.Base(path), c.Log)
}

type batchOutcome struct {
	result learner.BatchResult
	err    error
}

// LearnBatch starts a batch in the background and waits for it while the caller
// can afford to: until ctx is done or three quarters of the time left before its
// deadline has passed. done is false when the batch is still running; it then
// finishes on its own and reloads the cache.
func (c *Components) LearnBatch(ctx context.Context, questions []string, opts learner.BatchOptions) (learner.BatchResult, bool, error) {
	outcome := make(chan batchOutcome, 1)
	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		res, err := c.Learner.LearnBatch(c.ctx, questions, opts)
		switch {
		case err == nil:
			c.Knowledge.Reload(c.ctx)
		case !errors.Is(err, learner.ErrBatchRunning):
			c.Log.Warn("Learning batch stopped", logger.ErrorField(err))
		}
		outcome <- batchOutcome{result: res, err: err}
	}()

	var expired <-chan time.Time
	if deadline, ok := ctx.Deadline(); ok {
		t := time.NewTimer(time.Until(deadline) * 3 / 4)
		defer t.Stop()
		expired = t.C
	}

	select {
	case out := <-outcome:
		return out.result, true, out.err
	case <-expired:
	case <-ctx.Done():
	}
	c.Log.Info("Learning batch continues in the background",
		logger.IntField("questions", len(questions)))
	return learner.BatchResult{}, false, nil
}

// Relearn runs a batch over the question file and reloads the cache. It backs the
// "auto-learn" chat command and reports executor.ErrRelearnPending when the batch
// outlives ctx.
func (c *Components) Relearn(ctx context.Context) error {
	res, done, err := c.LearnBatch(ctx, c.Questions(ctx), learner.BatchOptions{
		Interval:     c.Config.Learner.Interval,
		SkipAnswered: c.Config.Learner.SkipAnswered,
	})
	if err != nil {
		return err
	}
	if !done {
		return executor.ErrRelearnPending
	}
	c.Log.Info("Relearn finished",
		logger.IntField("learned", res.Learned),
		logger.IntField("skipped", res.Skipped))
	return nil
}

// QuestionSource returns the continuous learner's feed: the Lua script when one is
// configured, otherwise the question file on a loop. The returned func releases it.
func (c *Components) QuestionSource(ctx context.Context) (learner.QuestionSource, func(), error) {
	path := c.Config.Learner.LuaScript
	if path == "" {
		return learner.NewListSource(c.Questions(ctx)), func() {}, nil
	}

	provider := storage_manager.NewLocalFileProvider(filepath.Dir(path))
	script, err := provider.Read(ctx, filepath.Base(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read lua script: %w", err)
	}
	supplier, err := learner.NewLuaSupplier(ctx, string(script), c.Config.Learner.LuaTimeout, c.Log)
	if err != nil {
		return nil, nil, err
	}
	return supplier, supplier.Close, nil
}

// Close stops background batches, waits for them, then releases database and
// redis connections.
func (c *Components) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	c.jobs.Wait()
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			c.Log.Warn("Failed to close redis client", logger.ErrorField(err))
		}
	}
}
