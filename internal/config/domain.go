package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Factual reply modes.
const (
	FactualModeCache  = "cache"
	FactualModeLive   = "live"
	FactualModeHybrid = "hybrid"
)

// Knowledge cache backends.
const (
	KnowledgeBackendFile     = "file"
	KnowledgeBackendPostgres = "postgres"
)

// PersonaConfig names the bot and its creator.
type PersonaConfig struct {
	Name    string `env:"PERSONA_NAME" yaml:"name" default:"rota2.v"`
	Creator string `env:"PERSONA_CREATOR" yaml:"creator" default:"Davood"`
}

func (p PersonaConfig) Validate() error {
	if p.Name == "" || p.Creator == "" {
		return fmt.Errorf("persona name and creator must be set")
	}
	return nil
}

// EngineConfig tunes the mood engine and composer.
type EngineConfig struct {
	StateFile            string        `env:"ENGINE_STATE_FILE" yaml:"state_file" default:"memory.json"`
	MemoryLimit          int           `env:"ENGINE_MEMORY_LIMIT" yaml:"memory_limit" default:"100"`
	SelfTalkLimit        int           `env:"ENGINE_SELF_TALK_LIMIT" yaml:"self_talk_limit" default:"50"`
	ThinkMin             time.Duration `env:"ENGINE_THINK_MIN" yaml:"think_min" default:"700ms"`
	ThinkMax             time.Duration `env:"ENGINE_THINK_MAX" yaml:"think_max" default:"1500ms"`
	CuriosityProbability float64       `env:"ENGINE_CURIOSITY_PROBABILITY" yaml:"curiosity_probability" default:"0.3"`
}

func (e EngineConfig) Validate() error {
	var result error
	if e.StateFile == "" {
		result = multierror.Append(result, fmt.Errorf("engine state_file is required"))
	}
	if e.MemoryLimit < 1 {
		result = multierror.Append(result, fmt.Errorf("engine memory_limit must be positive, got %d", e.MemoryLimit))
	}
	if e.SelfTalkLimit < 1 {
		result = multierror.Append(result, fmt.Errorf("engine self_talk_limit must be positive, got %d", e.SelfTalkLimit))
	}
	if e.ThinkMin < 0 || e.ThinkMax < e.ThinkMin {
		result = multierror.Append(result, fmt.Errorf("engine think delay bounds invalid: [%s, %s]", e.ThinkMin, e.ThinkMax))
	}
	if e.CuriosityProbability < 0 || e.CuriosityProbability > 1 {
		result = multierror.Append(result, fmt.Errorf("engine curiosity_probability must be within [0, 1], got %g", e.CuriosityProbability))
	}
	return result
}

// KnowledgeConfig configures the Q&A cache.
type KnowledgeConfig struct {
	Backend           string  `env:"KNOWLEDGE_BACKEND" yaml:"backend" default:"file"`
	File              string  `env:"KNOWLEDGE_FILE" yaml:"file" default:"qa_data.json"`
	AnswerLength      int     `env:"KNOWLEDGE_ANSWER_LENGTH" yaml:"answer_length" default:"400"`
	FuzzyCutoff       float64 `env:"KNOWLEDGE_FUZZY_CUTOFF" yaml:"fuzzy_cutoff" default:"0.6"`
	FactualMode       string  `env:"KNOWLEDGE_FACTUAL_MODE" yaml:"factual_mode" default:"cache"`
	LiveExcerptLength int     `env:"KNOWLEDGE_LIVE_EXCERPT_LENGTH" yaml:"live_excerpt_length" default:"300"`
	MigrateOnStart    bool    `env:"KNOWLEDGE_MIGRATE_ON_START" yaml:"migrate_on_start" default:"true"`
}

func (k KnowledgeConfig) Validate() error {
	var result error
	switch k.Backend {
	case KnowledgeBackendFile, KnowledgeBackendPostgres:
	default:
		result = multierror.Append(result, fmt.Errorf("knowledge backend must be 'file' or 'postgres', got %q", k.Backend))
	}
	switch k.FactualMode {
	case FactualModeCache, FactualModeLive, FactualModeHybrid:
	default:
		result = multierror.Append(result, fmt.Errorf("knowledge factual_mode must be one of [cache, live, hybrid], got %q", k.FactualMode))
	}
	if k.AnswerLength < 1 || k.LiveExcerptLength < 1 {
		result = multierror.Append(result, fmt.Errorf("knowledge answer lengths must be positive"))
	}
	if k.FuzzyCutoff <= 0 || k.FuzzyCutoff > 1 {
		result = multierror.Append(result, fmt.Errorf("knowledge fuzzy_cutoff must be within (0, 1], got %g", k.FuzzyCutoff))
	}
	return result
}

// SearchConfig configures the search provider and page fetcher. The API key is
// environment only.
type SearchConfig struct {
	APIKey      string        `env:"SEARCHAPI_API_KEY" yaml:"-"`
	BaseURL     string        `env:"SEARCH_API_URL" yaml:"base_url" default:"https://serpapi.com/search.json"`
	Engine      string        `env:"SEARCH_ENGINE" yaml:"engine" default:"google"`
	NumResults  int           `env:"SEARCH_NUM_RESULTS" yaml:"num_results" default:"3"`
	Timeout     time.Duration `env:"SEARCH_TIMEOUT" yaml:"timeout" default:"30s"`
	PageTimeout time.Duration `env:"SEARCH_PAGE_TIMEOUT" yaml:"page_timeout" default:"10s"`
	NewsBaseURL string        `env:"SEARCH_NEWS_BASE_URL" yaml:"news_base_url" default:"https://news.google.com"`
	UserAgent   string        `env:"SEARCH_USER_AGENT" yaml:"user_agent" default:"Mozilla/5.0 (compatible; rota/1.0)"`
}

// Enabled reports whether an API key is configured.
func (s SearchConfig) Enabled() bool {
	return s.APIKey != ""
}

func (s SearchConfig) Validate() error {
	var result error
	if s.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("search base_url is required"))
	}
	if s.NumResults < 1 {
		result = multierror.Append(result, fmt.Errorf("search num_results must be positive, got %d", s.NumResults))
	}
	if s.PageTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("search page_timeout must be positive"))
	}
	return result
}

// LearnerConfig drives batch and continuous learning.
type LearnerConfig struct {
	QuestionsFile string        `env:"LEARNER_QUESTIONS_FILE" yaml:"questions_file" default:"questions.txt"`
	LuaScript     string        `env:"LEARNER_LUA_SCRIPT" yaml:"lua_script"`
	LuaTimeout    time.Duration `env:"LEARNER_LUA_TIMEOUT" yaml:"lua_timeout" default:"2s"`
	Interval      time.Duration `env:"LEARNER_INTERVAL" yaml:"interval" default:"20s"`
	LoopInterval  time.Duration `env:"LEARNER_LOOP_INTERVAL" yaml:"loop_interval" default:"10s"`
	SkipAnswered  bool          `env:"LEARNER_SKIP_ANSWERED" yaml:"skip_answered" default:"true"`
	Continuous    bool          `env:"LEARNER_CONTINUOUS" yaml:"continuous"`
}

func (l LearnerConfig) Validate() error {
	if l.Interval < 0 || l.LoopInterval < 0 {
		return fmt.Errorf("learner intervals cannot be negative")
	}
	return nil
}

// StorageConfig selects where the engine state and file backed cache live.
type StorageConfig struct {
	Backend   string `env:"STORAGE_BACKEND" yaml:"backend" default:"local"`
	LocalDir  string `env:"STORAGE_LOCAL_DIR" yaml:"local_dir" default:"./data"`
	Namespace string `env:"STORAGE_NAMESPACE" yaml:"namespace"`

	S3Bucket  string `env:"STORAGE_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix  string `env:"STORAGE_S3_PREFIX" yaml:"s3_prefix"`
	S3Region  string `env:"STORAGE_S3_REGION" yaml:"s3_region"`
	S3Profile string `env:"STORAGE_S3_PROFILE" yaml:"s3_profile"`

	GitPath        string `env:"STORAGE_GIT_PATH" yaml:"git_path"`
	GitAuthorName  string `env:"STORAGE_GIT_AUTHOR_NAME" yaml:"git_author_name" default:"rota"`
	GitAuthorEmail string `env:"STORAGE_GIT_AUTHOR_EMAIL" yaml:"git_author_email" default:"rota@localhost"`

	RedisKeyPrefix string `env:"STORAGE_REDIS_KEY_PREFIX" yaml:"redis_key_prefix" default:"rota:"`
}

func (s StorageConfig) Validate() error {
	var result error
	switch s.Backend {
	case "local":
		if s.LocalDir == "" {
			result = multierror.Append(result, fmt.Errorf("storage local_dir is required for the local backend"))
		}
	case "s3":
		if s.S3Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("storage s3_bucket is required for the s3 backend"))
		}
	case "git":
		if s.GitPath == "" {
			result = multierror.Append(result, fmt.Errorf("storage git_path is required for the git backend"))
		}
	case "redis":
	default:
		result = multierror.Append(result, fmt.Errorf("storage backend must be one of [local, s3, git, redis], got %q", s.Backend))
	}
	return result
}
