package source

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-research/internal/cache"
	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/model"
)

// Config bounds a collection run.
type Config struct {
	// MaxConcurrent caps adapters in flight. 1 runs them sequentially.
	MaxConcurrent int
	// AdapterTimeout is the deadline for each adapter call.
	AdapterTimeout time.Duration
	// CollectTimeout is the soft budget for the whole run.
	CollectTimeout time.Duration
}

// Orchestrator fans a query out to every configured adapter.
type Orchestrator struct {
	adapters []Adapter
	cfg      Config
	cache    cache.Cache
	metrics  *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache writes successful results to c. Collect always fetches fresh;
// only Cached reads from c.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.cache = c
		}
	}
}

// WithMetrics records per-source outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an Orchestrator over adapters. Nil adapters are
// skipped.
func NewOrchestrator(adapters []Adapter, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = len(adapters)
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 45 * time.Second
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = 90 * time.Second
	}

	o := &Orchestrator{cfg: cfg, cache: cache.Noop{}}
	for _, a := range adapters {
		if a != nil {
			o.adapters = append(o.adapters, a)
		}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sources lists the configured adapters in registration order.
func (o *Orchestrator) Sources() []model.SourceName {
	out := make([]model.SourceName, 0, len(o.adapters))
	for _, a := range o.adapters {
		out = append(out, a.Name())
	}
	return out
}

// Collect runs every adapter for q and merges the results. It never fails:
// adapter errors, timeouts and panics become failed results in the bundle.
// The cache is never consulted, so every research run sees current data.
func (o *Orchestrator) Collect(ctx context.Context, q model.CompanyQuery) *model.AggregateBundle {
	log := zap.L().With(zap.String("company", q.DisplayName()))
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CollectTimeout)
	defer cancel()

	// Each goroutine owns its slot; no locking needed.
	results := make([]model.RawSourceResult, len(o.adapters))

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.MaxConcurrent)
	for i, a := range o.adapters {
		g.Go(func() error {
			results[i] = o.fetchOne(ctx, a, q)
			return nil
		})
	}
	_ = g.Wait()

	bundle := model.NewBundle(q)
	for _, r := range results {
		bundle.Add(r)
	}
	bundle.CollectedAt = start.UTC()

	log.Info("source: collection complete",
		zap.Int("attempted", bundle.Attempted),
		zap.Int("succeeded", bundle.Succeeded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return bundle
}

// Cached rebuilds a bundle from cached results only. Sources without a
// cached success are left out of the bundle entirely.
func (o *Orchestrator) Cached(ctx context.Context, q model.CompanyQuery) *model.AggregateBundle {
	bundle := model.NewBundle(q)
	for _, a := range o.adapters {
		r, err := o.cache.Get(ctx, a.Name(), q)
		if err != nil {
			zap.L().Warn("source: cache read failed",
				zap.String("source", string(a.Name())),
				zap.Error(err),
			)
			continue
		}
		o.metrics.ObserveCache(r != nil)
		if r != nil {
			bundle.Add(*r)
		}
	}
	bundle.CollectedAt = time.Now().UTC()
	return bundle
}

func (o *Orchestrator) fetchOne(ctx context.Context, a Adapter, q model.CompanyQuery) model.RawSourceResult {
	src := a.Name()

	actx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	r := o.safeFetch(actx, a, q)
	if r.Source != src {
		r.Source = src
	}
	o.metrics.ObserveSource(string(src), r.Success, r.Duration)

	if r.Success {
		if err := o.cache.Set(ctx, q, r); err != nil {
			zap.L().Warn("source: cache write failed", zap.String("source", string(src)), zap.Error(err))
		}
	}
	return r
}

func (o *Orchestrator) safeFetch(ctx context.Context, a Adapter, q model.CompanyQuery) (r model.RawSourceResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("source: adapter panicked",
				zap.String("source", string(a.Name())),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			r = model.Failed(a.Name(), fmt.Sprintf("internal error: %v", p), start.UTC(), time.Since(start))
		}
	}()
	return a.Fetch(ctx, q)
}
