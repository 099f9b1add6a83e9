package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Index     IndexConfig     `yaml:"index"`
	Cache     CacheConfig     `yaml:"cache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// LLMConfig contains ChatGPT/OpenAI settings.
type LLMConfig struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	EmbeddingModel string        `yaml:"embeddingModel"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBatchTokens int           `yaml:"maxBatchTokens"`
}

// CorpusConfig points at the CSV knowledge base.
type CorpusConfig struct {
	Source        string              `yaml:"source"`
	Path          string              `yaml:"path"`
	ObjectStorage ObjectStorageConfig `yaml:"objectStorage"`
}

// ObjectStorageConfig locates the corpus in an S3-compatible bucket.
type ObjectStorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
}

// RetrievalConfig controls how many excerpts back each answer.
type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

// IndexConfig selects the similarity index storage.
type IndexConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Table    string `yaml:"table"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig selects where corpus embeddings are cached between restarts.
type CacheConfig struct {
	Backend string       `yaml:"backend"`
	Bolt    BoltConfig   `yaml:"bolt"`
	Valkey  ValkeyConfig `yaml:"valkey"`
}

// BoltConfig locates the bbolt cache file.
type BoltConfig struct {
	Path string `yaml:"path"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Addr   string        `yaml:"addr"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

const (
	SourceFile = "file"
	SourceS3   = "s3"

	IndexMemory   = "memory"
	IndexPostgres = "postgres"

	CacheNone   = "none"
	CacheBolt   = "bolt"
	CacheValkey = "valkey"
)

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	// OPENAI_API_KEY is the conventional name; LLM_API_KEY wins when both are set.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = strings.ToLower(v)
	}
	if v := os.Getenv("CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("CORPUS_S3_ENDPOINT"); v != "" {
		cfg.Corpus.ObjectStorage.Endpoint = v
	}
	if v := os.Getenv("CORPUS_S3_ACCESS_KEY"); v != "" {
		cfg.Corpus.ObjectStorage.AccessKey = v
	}
	if v := os.Getenv("CORPUS_S3_SECRET_KEY"); v != "" {
		cfg.Corpus.ObjectStorage.SecretKey = v
	}
	if v := os.Getenv("CORPUS_S3_BUCKET"); v != "" {
		cfg.Corpus.ObjectStorage.Bucket = v
	}
	if v := os.Getenv("CORPUS_S3_KEY"); v != "" {
		cfg.Corpus.ObjectStorage.Key = v
	}
	if v := os.Getenv("RETRIEVAL_TOP_K"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = parsed
		}
	}
	if v := os.Getenv("INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("INDEX_POSTGRES_DSN"); v != "" {
		cfg.Index.Postgres.DSN = v
	}
	if v := os.Getenv("INDEX_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Index.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_BOLT_PATH"); v != "" {
		cfg.Cache.Bolt.Path = v
	}
	if v := os.Getenv("CACHE_VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("CACHE_VALKEY_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.Valkey.TTL = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
			},
		},
		LLM: LLMConfig{
			Model:          "gpt-3.5-turbo",
			EmbeddingModel: "text-embedding-ada-002",
			Timeout:        60 * time.Second,
			MaxBatchTokens: 200_000,
		},
		Corpus: CorpusConfig{
			Source: SourceFile,
			Path:   "iso_base.csv",
		},
		Retrieval: RetrievalConfig{TopK: 3},
		Index: IndexConfig{
			Backend: IndexMemory,
			Postgres: PostgresConfig{
				Table:    "iso_documents",
				MaxConns: 4,
			},
		},
		Cache: CacheConfig{
			Backend: CacheNone,
			Bolt:    BoltConfig{Path: "data/embeddings.db"},
			Valkey:  ValkeyConfig{Prefix: "iso-insight"},
		},
	}
}

// Validate ensures the configuration is safe to use. The API credential is
// deliberately not checked here; see Credential.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if strings.TrimSpace(c.LLM.EmbeddingModel) == "" {
		return errors.New("llm.embeddingModel cannot be empty")
	}
	if c.LLM.Timeout < 0 {
		return errors.New("llm.timeout cannot be negative")
	}
	if c.LLM.MaxBatchTokens <= 0 {
		return errors.New("llm.maxBatchTokens must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.topK must be positive")
	}
	switch c.Corpus.Source {
	case SourceFile:
		if strings.TrimSpace(c.Corpus.Path) == "" {
			return errors.New("corpus.path cannot be empty")
		}
	case SourceS3:
		store := c.Corpus.ObjectStorage
		if strings.TrimSpace(store.Endpoint) == "" || strings.TrimSpace(store.Bucket) == "" || strings.TrimSpace(store.Key) == "" {
			return errors.New("corpus.objectStorage endpoint, bucket and key are required for the s3 source")
		}
	default:
		return fmt.Errorf("corpus.source %q is not supported", c.Corpus.Source)
	}
	switch c.Index.Backend {
	case IndexMemory:
	case IndexPostgres:
		if strings.TrimSpace(c.Index.Postgres.DSN) == "" {
			return errors.New("index.postgres.dsn cannot be empty when the postgres backend is selected")
		}
		if strings.TrimSpace(c.Index.Postgres.Table) == "" {
			return errors.New("index.postgres.table cannot be empty")
		}
	default:
		return fmt.Errorf("index.backend %q is not supported", c.Index.Backend)
	}
	switch c.Cache.Backend {
	case CacheNone:
	case CacheBolt:
		if strings.TrimSpace(c.Cache.Bolt.Path) == "" {
			return errors.New("cache.bolt.path cannot be empty when the bolt cache is enabled")
		}
	case CacheValkey:
		if strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
			return errors.New("cache.valkey.addr cannot be empty when the valkey cache is enabled")
		}
		if c.Cache.Valkey.TTL < 0 {
			return errors.New("cache.valkey.ttl cannot be negative")
		}
	default:
		return fmt.Errorf("cache.backend %q is not supported", c.Cache.Backend)
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	return nil
}

// Credential returns the hosted API key or a config_error when it is missing.
// A missing key blocks the interface instead of failing process start.
func (c LLMConfig) Credential() (string, error) {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return "", apperrors.Wrap(apperrors.CodeConfig, "OpenAI API key not found; set the OPENAI_API_KEY environment variable", nil)
	}
	return key, nil
}
