package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	"github.com/yanqian/iso-insight/internal/infra/config"
	"github.com/yanqian/iso-insight/internal/infra/corpus"
	"github.com/yanqian/iso-insight/internal/infra/embedcache"
	"github.com/yanqian/iso-insight/internal/infra/embedder"
	"github.com/yanqian/iso-insight/internal/infra/generator"
	"github.com/yanqian/iso-insight/internal/infra/llm/chatgpt"
	"github.com/yanqian/iso-insight/internal/infra/vectorindex"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// newTokenCounter is swapped in tests so startup never downloads BPE tables.
var newTokenCounter = embedder.NewTiktokenCounter

// Runtime holds the outcome of the startup phase. Exactly one of assistant
// and err is set.
type Runtime struct {
	assistant insight.Assistant
	err       error
	documents int
	closers   []io.Closer
}

// Assistant returns the ready assistant or the error blocking the page.
func (r *Runtime) Assistant() (insight.Assistant, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.assistant, nil
}

// Err reports the startup failure, if any.
func (r *Runtime) Err() error { return r.err }

// Documents reports how many corpus rows were indexed.
func (r *Runtime) Documents() int { return r.documents }

// Close releases the cache and index connections opened during startup.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) block(logger *slog.Logger, err error) *Runtime {
	logger.Error("startup blocked", "code", apperrors.CodeOf(err), "error", err)
	r.err = err
	return r
}

// Startup checks the credential, loads the corpus, embeds and indexes it and
// wires the answer service. Failures are recorded on the Runtime rather than
// returned so the page can explain them.
func Startup(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Runtime {
	logger = logger.With("component", "bootstrap.startup")
	rt := &Runtime{}

	apiKey, err := cfg.LLM.Credential()
	if err != nil {
		return rt.block(logger, err)
	}
	client, err := chatgpt.NewClient(apiKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	if err != nil {
		return rt.block(logger, apperrors.Wrap(apperrors.CodeConfig, "invalid llm configuration", err))
	}

	source, err := buildSource(cfg.Corpus)
	if err != nil {
		return rt.block(logger, err)
	}
	docs, err := corpus.NewCSVLoader(source, logger).Load(ctx)
	if err != nil {
		return rt.block(logger, err)
	}

	cache := rt.buildCache(cfg.Cache, logger)
	counter, err := newTokenCounter(cfg.LLM.EmbeddingModel)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, estimating tokens", "model", cfg.LLM.EmbeddingModel, "error", err)
		counter = embedder.EstimateTokens
	}
	emb := embedder.NewChatGPTEmbedder(client, cfg.LLM.EmbeddingModel, cfg.LLM.MaxBatchTokens, counter, logger)
	// only corpus vectors are cached; question vectors stay per request
	corpusEmb := embedder.NewCachedEmbedder(emb, cache, cfg.LLM.EmbeddingModel, logger)

	store := rt.buildStore(ctx, cfg.Index, logger)
	started := time.Now()
	index, err := insight.BuildIndex(ctx, docs, corpusEmb, store)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CodeAuthentication) {
			err = apperrors.Wrap(apperrors.CodeLoad, "failed to build the similarity index", err)
		}
		return rt.block(logger, err)
	}
	logger.Info("similarity index ready",
		"documents", index.Len(),
		"dimension", index.Dimension(),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	retriever := insight.NewRetriever(emb, index, cfg.Retrieval.TopK)
	gen := generator.NewChatGPTGenerator(client, cfg.LLM.Model)
	rt.assistant = insight.NewService(retriever, gen, logger)
	rt.documents = index.Len()
	return rt
}

func buildSource(cfg config.CorpusConfig) (corpus.Source, error) {
	if cfg.Source != config.SourceS3 {
		return corpus.FileSource{Path: cfg.Path}, nil
	}
	store := cfg.ObjectStorage
	source, err := corpus.NewObjectSource(store.Endpoint, store.AccessKey, store.SecretKey, store.Region, store.Bucket, store.Key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeLoad, "failed to open corpus object storage", err)
	}
	return source, nil
}

// buildCache returns embedcache.Noop when caching is disabled or its backend
// is unavailable.
func (r *Runtime) buildCache(cfg config.CacheConfig, logger *slog.Logger) embedder.Cache {
	switch cfg.Backend {
	case config.CacheBolt:
		db, err := embedcache.OpenBolt(cfg.Bolt.Path)
		if err != nil {
			logger.Error("failed to open bolt cache, embedding without cache", "path", cfg.Bolt.Path, "error", err)
			return embedcache.Noop{}
		}
		r.closers = append(r.closers, db)
		logger.Info("bolt embedding cache enabled", "path", cfg.Bolt.Path)
		return db
	case config.CacheValkey:
		opt, err := buildValkeyOptions(cfg.Valkey.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, embedding without cache", "error", err)
			return embedcache.Noop{}
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, embedding without cache", "error", err)
			return embedcache.Noop{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, embedding without cache", "error", err)
			client.Close()
			return embedcache.Noop{}
		}
		r.closers = append(r.closers, closerFunc(func() error {
			client.Close()
			return nil
		}))
		logger.Info("valkey embedding cache enabled", "addr", cfg.Valkey.Addr)
		return embedcache.NewValkey(client, cfg.Valkey.Prefix, cfg.Valkey.TTL)
	default:
		return embedcache.Noop{}
	}
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func (r *Runtime) buildStore(ctx context.Context, cfg config.IndexConfig, logger *slog.Logger) insight.VectorStore {
	if cfg.Backend != config.IndexPostgres {
		return vectorindex.NewMemory()
	}
	poolConfig, err := pgxpool.ParseConfig(strings.TrimSpace(cfg.Postgres.DSN))
	if err != nil {
		logger.Error("invalid postgres dsn, using memory index", "error", err)
		return vectorindex.NewMemory()
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory index", "error", err)
		return vectorindex.NewMemory()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres ping failed, using memory index", "error", err)
		pool.Close()
		return vectorindex.NewMemory()
	}
	r.closers = append(r.closers, closerFunc(func() error {
		pool.Close()
		return nil
	}))
	logger.Info("pgvector index enabled", "table", cfg.Postgres.Table)
	return vectorindex.NewPostgres(pool, cfg.Postgres.Table)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
