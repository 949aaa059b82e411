// Package analysis turns an aggregate bundle into structured report
// content, using the LLM when possible and deterministic rules otherwise.
package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/llm"
	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/model"
)

// Preference selects the strategy for one call.
type Preference string

const (
	PreferAuto  Preference = "auto"
	PreferAI    Preference = "ai"
	PreferRules Preference = "rules"
)

// Fallback reasons recorded on manual_fallback content.
const (
	ReasonNoCredentials = "no_credentials"
	ReasonTimeout       = "timeout"
	ReasonProvider      = "provider_error"
	ReasonConfig        = "config_error"
	ReasonInvalidOutput = "invalid_output"
)

// Completer is the LLM surface the engine needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Engine selects between the AI and rule-based strategies.
type Engine struct {
	llm       Completer
	aiEnabled bool
	rules     *Rules
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records analysis outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCatalog replaces the embedded keyword catalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) { e.rules = NewRules(c) }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. c may be nil when AI is disabled.
func NewEngine(c Completer, aiEnabled bool, opts ...Option) *Engine {
	e := &Engine{
		llm:       c,
		aiEnabled: aiEnabled,
		rules:     NewRules(nil),
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Analyze produces content for kind. It always returns valid content:
// any AI failure falls back to the rules and is recorded in the
// enhancement status and fallback reason. researchText is extra context
// for the profile step.
func (e *Engine) Analyze(ctx context.Context, b *model.AggregateBundle, kind model.DocumentKind, pref Preference, researchText string) *model.StructuredContent {
	if b == nil {
		b = model.NewBundle(model.CompanyQuery{})
	}
	log := zap.L().With(zap.String("company", b.Query.DisplayName()), zap.String("kind", string(kind)))

	c := &model.StructuredContent{
		Kind:             kind,
		Company:          companyName(b),
		Domain:           b.Query.Domain,
		SourcesSucceeded: b.Succeeded,
		SourcesAttempted: b.Attempted,
		GeneratedAt:      e.now().UTC(),
	}

	switch {
	case !e.aiEnabled || pref == PreferRules:
		e.applyRules(c, b, researchText)
		c.EnhancementStatus = model.EnhancementDisabled
	case e.llm == nil || !e.llm.Configured():
		e.applyRules(c, b, researchText)
		c.EnhancementStatus = model.EnhancementFallback
		c.FallbackReason = ReasonNoCredentials
	default:
		if err := e.applyAI(ctx, c, b, researchText); err != nil {
			c.FallbackReason = fallbackReason(err)
			log.Warn("analysis: AI strategy failed, using rules",
				zap.String("reason", c.FallbackReason),
				zap.Error(err),
			)
			e.applyRules(c, b, researchText)
			c.EnhancementStatus = model.EnhancementFallback
		} else {
			c.EnhancementStatus = model.EnhancementAI
		}
	}

	c.FillPlaceholders()
	e.metrics.ObserveAnalysis(string(kind), string(c.EnhancementStatus))
	log.Info("analysis: content ready",
		zap.String("enhancement_status", string(c.EnhancementStatus)),
		zap.String("fallback_reason", c.FallbackReason),
	)
	return c
}

func (e *Engine) applyRules(c *model.StructuredContent, b *model.AggregateBundle, researchText string) {
	switch c.Kind {
	case model.DocumentProfile:
		c.Profile = e.rules.Profile(b, researchText)
	default:
		c.Research = e.rules.Research(b)
	}
}

func (e *Engine) applyAI(ctx context.Context, c *model.StructuredContent, b *model.AggregateBundle, researchText string) error {
	text, err := e.llm.Complete(ctx, buildPrompt(b, c.Kind, researchText), llm.Options{System: systemPrompt})
	if err != nil {
		return err
	}
	switch c.Kind {
	case model.DocumentProfile:
		p, err := parseProfile(text)
		if err != nil {
			return err
		}
		// Data Completeness always reflects the bundle.
		for i := range p.Table {
			if p.Table[i].Field == "Data Completeness" {
				p.Table[i].Value = completeness(b)
			}
		}
		c.Profile = p
	default:
		r, err := parseResearch(text)
		if err != nil {
			return err
		}
		c.Research = r
	}
	return nil
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, llm.ErrConfiguration):
		return ReasonConfig
	case errors.Is(err, ErrInvalidOutput):
		return ReasonInvalidOutput
	default:
		return ReasonProvider
	}
}
