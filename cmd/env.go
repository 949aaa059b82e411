package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/analysis"
	"github.com/sells-group/prospect-research/internal/cache"
	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/docstore"
	"github.com/sells-group/prospect-research/internal/llm"
	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/source"
	"github.com/sells-group/prospect-research/internal/store"
	"github.com/sells-group/prospect-research/internal/workflow"
)

// appEnv holds everything the commands need to run the workflow.
type appEnv struct {
	Store      store.Store
	Docs       docstore.Store
	Cache      cache.Cache
	Metrics    *metrics.Metrics
	Controller *workflow.Controller
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the store, document store and cache, builds the source
// adapters and analysis engine, and wires them into a workflow controller.
// Callers should defer env.Close().
func initEnv(ctx context.Context, pref analysis.Preference) (*appEnv, error) {
	env := &appEnv{Metrics: metrics.New()}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env.Store = st

	docs, err := docstore.Open(ctx, cfg.Documents)
	if err != nil {
		env.Close()
		return nil, workflow.Configuration("open documents", err)
	}
	env.Docs = docs

	c, err := initCache(ctx, cfg.Cache)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Cache = c

	adapters, err := source.Build(cfg)
	if err != nil {
		env.Close()
		return nil, workflow.Configuration("build sources", err)
	}
	orch := source.NewOrchestrator(adapters, source.Config{
		MaxConcurrent:  cfg.Sources.MaxConcurrent,
		AdapterTimeout: cfg.Sources.AdapterTimeout(),
		CollectTimeout: cfg.Sources.CollectTimeout(),
	}, source.WithCache(c), source.WithMetrics(env.Metrics))

	client, err := llm.NewFromConfig(cfg)
	if err != nil {
		env.Close()
		return nil, workflow.Configuration("build llm client", err)
	}
	if cfg.AI.Enabled && !client.Configured() {
		zap.L().Warn("llm credentials not set, analysis will use rules only",
			zap.String("provider", cfg.LLM.Provider),
		)
	}
	engine := analysis.NewEngine(client, cfg.AI.Enabled, analysis.WithMetrics(env.Metrics))

	env.Controller = workflow.New(st, docs, orch, engine,
		workflow.WithMetrics(env.Metrics),
		workflow.WithPreference(pref),
	)

	zap.L().Info("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("documents", cfg.Documents.Backend),
		zap.String("cache", cfg.Cache.Backend),
		zap.Int("sources", len(orch.Sources())),
		zap.Bool("ai_enabled", cfg.AI.Enabled),
	)
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	if cc.Backend != "redis" {
		return cache.Noop{}, nil
	}
	c, err := cache.NewRedis(ctx, &redis.Options{
		Addr:     cc.Addr,
		Password: cc.Password,
		DB:       cc.DB,
	}, cc.TTL())
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}
	return c, nil
}

func parsePreference(s string) (analysis.Preference, error) {
	switch p := analysis.Preference(s); p {
	case analysis.PreferAuto, analysis.PreferAI, analysis.PreferRules:
		return p, nil
	case "":
		return analysis.PreferAuto, nil
	default:
		return "", eris.Errorf("unknown analysis strategy %q (want auto, ai or rules)", s)
	}
}
