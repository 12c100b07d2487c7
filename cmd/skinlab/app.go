package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/skinlab/internal/auth"
	"github.com/kailas-cloud/skinlab/internal/config"
	"github.com/kailas-cloud/skinlab/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/skinlab/internal/db/redis"
	"github.com/kailas-cloud/skinlab/internal/domain"
	logpkg "github.com/kailas-cloud/skinlab/internal/logger"
	"github.com/kailas-cloud/skinlab/internal/metrics"
	"github.com/kailas-cloud/skinlab/internal/repository/catalog"
	"github.com/kailas-cloud/skinlab/internal/repository/embcache"
	"github.com/kailas-cloud/skinlab/internal/repository/questionnaire"
	"github.com/kailas-cloud/skinlab/internal/resilience"
	openaiEmb "github.com/kailas-cloud/skinlab/internal/transport/openai"
	"github.com/kailas-cloud/skinlab/internal/transport/storage"
	"github.com/kailas-cloud/skinlab/internal/transport/vertex"
	analysisuc "github.com/kailas-cloud/skinlab/internal/usecase/analysis"
	embeddinguc "github.com/kailas-cloud/skinlab/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/skinlab/internal/usecase/health"
	"github.com/kailas-cloud/skinlab/internal/usecase/productsearch"
	"github.com/kailas-cloud/skinlab/internal/usecase/prompt"
)

// app is the composition root shared by the serve and search commands.
type app struct {
	cfg    config.Config
	env    string
	logger *zap.Logger

	db     *sqlx.DB
	cache  *dbRedis.Store
	tokens *auth.TokenCache

	search   *productsearch.Service
	analysis *analysisuc.Service
	health   *healthuc.Service
}

func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, env, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Register metrics explicitly (no init())
	metrics.Register()

	a := &app{cfg: cfg, env: env, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	conn, err := postgres.Open(ctx, postgres.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("connect to catalog database: %w", err)
	}
	a.db = conn
	a.logger.Info("Connected to catalog database")

	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		a.cache = store
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		a.logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Invalid key material is a configuration error; fail before serving.
	sa, err := auth.NewServiceAccountSource([]byte(cfg.GCP.ServiceAccountJSON), cfg.GCP.Scope, cfg.GCP.TokenURL)
	if err != nil {
		return fmt.Errorf("service account: %w", err)
	}
	a.tokens = auth.NewTokenCache(sa, a.logger)

	projectID := cfg.GCP.ProjectID
	if projectID == "" {
		projectID = sa.ProjectID()
	}
	client, err := vertex.NewClient(&vertex.Config{
		BaseURL:   cfg.LLM.BaseURL,
		ProjectID: projectID,
		Location:  cfg.GCP.Location,
		Tokens:    a.tokens,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("create vertex client: %w", err)
	}

	embedder, base := a.buildEmbedder(client)
	a.logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	a.search = productsearch.New(catalog.New(conn), embedder, backoff(cfg.Search.MaxAttempts, cfg.Search.BaseDelayMs))

	images, err := a.buildImageStore()
	if err != nil {
		return err
	}

	a.analysis = analysisuc.New(
		questionnaire.New(conn),
		images,
		a.tokens,
		client,
		a.search,
		prompt.New(cfg.Prompt.MaxLength),
		analysisuc.Config{
			PlanningModel:   cfg.LLM.PlanningModel,
			SynthesisModel:  cfg.LLM.SynthesisModel,
			Temperature:     cfg.LLM.Temperature,
			TopP:            cfg.LLM.TopP,
			TopK:            cfg.LLM.TopK,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
			MaxStreamBytes:  cfg.LLM.MaxStreamBytes,
			MatchThreshold:  cfg.Search.MatchThreshold,
			MatchCount:      cfg.Search.MatchCount,
		},
	)

	// Pass nil interface (not typed nil pointer!) if the cache is disabled.
	var cachePinger healthuc.DBPinger
	if a.cache != nil {
		cachePinger = a.cache
	}
	a.health = healthuc.New(sqlPinger{conn}, cachePinger, a.tokens)
	if hc, ok := base.(domain.HealthChecker); ok {
		a.health.WithEmbeddingChecker(hc)
	}

	return nil
}

// buildEmbedder assembles the decorator chain: provider -> cached -> retrying.
// The undecorated provider is returned too for health checks.
func (a *app) buildEmbedder(client *vertex.Client) (domain.Embedder, domain.Embedder) {
	cfg := a.cfg.Embedding

	var base domain.Embedder
	switch cfg.Provider {
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     a.logger,
		})
	default:
		base = vertex.NewEmbedder(client, vertex.EmbedderConfig{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		})
	}

	embedder := base
	if a.cache != nil {
		embedder = embcache.New(base, a.cache, embcache.Options{
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        time.Duration(a.cfg.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, a.logger)
	}

	return embeddinguc.NewRetryingEmbedder(
		embedder, cfg.Provider, cfg.Model, backoff(cfg.MaxAttempts, cfg.BaseDelayMs), a.logger,
	), base
}

func (a *app) buildImageStore() (analysisuc.ImageStore, error) {
	cfg := a.cfg.Storage
	switch cfg.Driver {
	case "fs":
		s, err := storage.NewFSStore(cfg.Root, cfg.MaxObjectBytes)
		if err != nil {
			return nil, fmt.Errorf("create fs storage: %w", err)
		}
		return s, nil
	default:
		s, err := storage.NewHTTPStore(storage.HTTPConfig{
			BaseURL:    cfg.BaseURL,
			Bucket:     cfg.Bucket,
			ServiceKey: cfg.ServiceKey,
			MaxBytes:   cfg.MaxObjectBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("create http storage: %w", err)
		}
		return s, nil
	}
}

// Close releases connections. Safe on a partially wired app.
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Error closing database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// backoff leaves RetryOnFunc nil so each caller applies its own predicate.
func backoff(attempts, baseDelayMs int) resilience.BackoffConfig {
	return resilience.BackoffConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Duration(baseDelayMs) * time.Millisecond,
		MaxDelay:    resilience.DefaultMaxDelay,
		Multiplier:  resilience.DefaultMultiplier,
	}
}

// sqlPinger adapts *sqlx.DB to health.DBPinger.
type sqlPinger struct {
	db *sqlx.DB
}

func (p sqlPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
