package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/config"
	"github.com/kailas-cloud/newsrec/internal/db"
	dbRedis "github.com/kailas-cloud/newsrec/internal/db/redis"
	"github.com/kailas-cloud/newsrec/internal/db/sqldb"
	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
	"github.com/kailas-cloud/newsrec/internal/index"
	"github.com/kailas-cloud/newsrec/internal/metrics"
	articlerepo "github.com/kailas-cloud/newsrec/internal/repository/article"
	"github.com/kailas-cloud/newsrec/internal/repository/embcache"
	"github.com/kailas-cloud/newsrec/internal/transport/hashing"
	openaiEmb "github.com/kailas-cloud/newsrec/internal/transport/openai"
	articleuc "github.com/kailas-cloud/newsrec/internal/usecase/article"
	embeddinguc "github.com/kailas-cloud/newsrec/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/newsrec/internal/usecase/health"
	"github.com/kailas-cloud/newsrec/internal/usecase/recommend"
	seeduc "github.com/kailas-cloud/newsrec/internal/usecase/seed"
)

// app is the composition root shared by all subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	db    *sqldb.DB
	cache *dbRedis.Store // nil when caching is disabled

	articles *articlerepo.Repo
	rec      *recommend.Service
	catalog  *articleuc.Service
	health   *healthuc.Service
	docEmb   domain.Embedder
}

// newApp connects storage and assembles the services. The caller owns the
// result and must call close.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.db, err = sqldb.Open(sqldb.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = a.db.WaitForReady(ctx, cfg.Database.ReadinessTimeoutDuration()); err != nil {
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	if err = a.db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	var kv db.KVStore
	if cfg.Cache.Enabled() {
		a.cache, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err = a.cache.WaitForReady(ctx, timeout); err != nil {
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		kv = a.cache
		logger.Info("Connected to embedding cache",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	base, dims := buildEmbedder(cfg.Embedding, kv, cfg.Cache.TTL(), logger)
	a.docEmb = withInstruction(base, cfg.Embedding.DocumentInstruction)
	queryEmb := withInstruction(base, cfg.Embedding.QueryInstruction)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", modelName(cfg.Embedding)),
		zap.Int("dimensions", dims),
	)

	a.articles = articlerepo.New(a.db)
	a.rec = recommend.New(a.docEmb, index.NewStore(dims),
		recommend.WithQueryEmbedder(queryEmb),
		recommend.WithSource(a.articles),
		recommend.WithLogger(logger),
		recommend.WithWorkers(cfg.Recommender.Workers),
		recommend.WithBatchSize(cfg.Recommender.BatchSize),
		recommend.WithComposeOptions(article.ComposeOptions{
			MaxContentChars: cfg.Recommender.MaxContentChars,
			MinBoundary:     cfg.Recommender.MinBoundary,
		}),
	)
	a.catalog = articleuc.New(a.articles, a.rec, articleuc.Limits{
		DefaultList:   cfg.Articles.DefaultPageSize,
		MaxList:       cfg.Articles.MaxPageSize,
		DefaultSearch: cfg.Recommender.DefaultSearchLimit,
		MaxSearch:     cfg.Recommender.MaxSearchLimit,
	})

	healthOpts := []healthuc.Option{
		healthuc.WithIndex(a.rec),
		healthuc.WithLogger(logger),
	}
	if a.cache != nil {
		healthOpts = append(healthOpts, healthuc.WithCache(a.cache))
	}
	if hc, ok := a.docEmb.(domain.HealthChecker); ok {
		healthOpts = append(healthOpts, healthuc.WithEmbedding(hc))
	}
	a.health = healthuc.New(a.db, healthOpts...)

	return a, nil
}

// seeder returns the catalog importer configured for this process.
func (a *app) seeder() *seeduc.Service {
	return seeduc.New(a.articles, a.cfg.Seed.CSVPath, a.cfg.Seed.Limit, a.logger)
}

// bootstrap seeds an empty catalog when enabled, then builds the first index.
// A failed seed does not block the build: whatever the catalog holds is indexed
// and both errors are returned joined.
func (a *app) bootstrap(ctx context.Context, seed bool) error {
	var seedErr error
	if seed {
		if _, err := a.seeder().Seed(ctx); err != nil {
			seedErr = fmt.Errorf("seed: %w", err)
			a.logger.Error("Seeding failed, indexing the current catalog", zap.Error(err))
		}
	}
	if err := a.rec.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrRebuildSuperseded) {
		return errors.Join(seedErr, fmt.Errorf("build index: %w", err))
	}
	return seedErr
}

// close releases everything newApp acquired. Safe on a partially built app.
func (a *app) close() {
	if a.rec != nil {
		a.rec.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Closing database", zap.Error(err))
		}
	}
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented.
// kv may be nil to disable caching. It returns the chain and the vector
// length it produces, 0 when the provider decides.
func buildEmbedder(
	cfg config.EmbeddingConfig,
	kv db.KVStore,
	ttl time.Duration,
	logger *zap.Logger,
) (domain.Embedder, int) {
	model := modelName(cfg)
	dims := cfg.Dimensions

	var embedder domain.Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			User:       cfg.User,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		h := hashing.NewEmbedder(cfg.Dimensions)
		dims = h.Dimensions()
		embedder = h
	}

	if kv != nil {
		embedder = embcache.New(embedder, kv, logger,
			embcache.WithTTL(ttl),
			embcache.WithNamespace(model),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, model, logger,
		embeddinguc.WithDimensions(dims),
	), dims
}

// withInstruction prefixes texts for asymmetric models; an empty instruction
// leaves inner unchanged.
func withInstruction(inner domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

// modelName labels metrics and namespaces cache keys. The vector length is
// part of the name so a dimensions change never reads stale cache entries.
func modelName(cfg config.EmbeddingConfig) string {
	if cfg.Provider == config.ProviderHashing {
		return fmt.Sprintf("hashing-%d", cfg.Dimensions)
	}
	if cfg.Dimensions > 0 {
		return fmt.Sprintf("%s-%d", cfg.Model, cfg.Dimensions)
	}
	return cfg.Model
}
