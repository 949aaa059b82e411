// Package workflow sequences the research and profile steps for a prospect
// and records their progress.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/analysis"
	"github.com/sells-group/prospect-research/internal/docstore"
	"github.com/sells-group/prospect-research/internal/metrics"
	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/report"
	"github.com/sells-group/prospect-research/internal/store"
)

// Collector gathers source results for a company.
type Collector interface {
	Collect(ctx context.Context, q model.CompanyQuery) *model.AggregateBundle
	// Cached rebuilds a bundle from previously collected results only.
	Cached(ctx context.Context, q model.CompanyQuery) *model.AggregateBundle
}

// Analyzer turns a bundle into report content. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, b *model.AggregateBundle, kind model.DocumentKind, pref analysis.Preference, researchText string) *model.StructuredContent
}

// ResearchResult is the outcome of a research step.
type ResearchResult struct {
	Prospect          *model.Prospect
	DocumentPath      string
	EnhancementStatus model.EnhancementStatus
	FallbackReason    string
	SourcesSucceeded  int
	SourcesAttempted  int
	SourceErrors      []model.SourceError
}

// ProfileResult is the outcome of a profile step.
type ProfileResult struct {
	Prospect          *model.Prospect
	DocumentPath      string
	EnhancementStatus model.EnhancementStatus
	FallbackReason    string
	// ReusedSources counts the successful source results from research that
	// the profile was built on.
	ReusedSources     int
}

// ProspectData is the stored view of a prospect. Document paths are set
// only for documents that exist.
type ProspectData struct {
	Prospect     *model.Prospect
	ResearchPath string
	ProfilePath  string
	ResearchText string
	ProfileText  string
}

// Controller runs the two-step research workflow. It is the only writer
// of prospect status and documents.
type Controller struct {
	store     store.Store
	docs      docstore.Store
	collector Collector
	analyzer  Analyzer
	pref      analysis.Preference
	metrics   *metrics.Metrics
	locks     *keyedMutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics records step outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPreference sets the analysis strategy preference for every step.
func WithPreference(p analysis.Preference) Option {
	return func(c *Controller) { c.pref = p }
}

// New creates a Controller.
func New(st store.Store, docs docstore.Store, collector Collector, analyzer Analyzer, opts ...Option) *Controller {
	c := &Controller{
		store:     st,
		docs:      docs,
		collector: collector,
		analyzer:  analyzer,
		pref:      analysis.PreferAuto,
		locks:     newKeyedMutex(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Research runs the research step for company, a name or a domain. The
// prospect is created on first use. Source and analysis failures never
// fail the step; only store and document errors do, and those leave the
// prospect failed.
func (c *Controller) Research(ctx context.Context, company string) (res *ResearchResult, err error) {
	const op = "research"
	start := time.Now()
	defer func() { c.metrics.ObserveStep(op, err == nil, time.Since(start)) }()

	q := model.ParseCompany(company)
	if q.Name == "" && q.Domain == "" {
		return nil, precondition(op, eris.New("company name or domain is required"))
	}

	unlockCompany := c.locks.Lock("company:" + q.CacheKey())
	defer unlockCompany()

	p, err := store.Resolve(ctx, c.store, q)
	if err != nil {
		return nil, persistence(op, err)
	}
	if p == nil {
		if p, err = c.store.Create(ctx, q); err != nil {
			return nil, persistence(op, err)
		}
	}

	unlock := c.locks.Lock(p.ID)
	defer unlock()

	log := zap.L().With(zap.String("prospect_id", p.ID), zap.String("company", p.Company))
	log.Info("workflow: research started", zap.String("previous_status", string(p.Status)))

	if err := c.setStatus(ctx, p, store.StatusUpdate{Status: model.StatusResearching}); err != nil {
		return nil, persistence(op, err)
	}

	bundle := c.collector.Collect(ctx, p.Query())
	content := c.analyzer.Analyze(ctx, bundle, model.DocumentResearch, c.pref, "")

	if err := c.writeSnapshot(ctx, p.ID, bundle); err != nil {
		return nil, c.fail(ctx, op, p, model.StatusResearching, err)
	}
	loc, err := c.writeDocument(ctx, p.ID, model.DocumentResearch, content)
	if err != nil {
		return nil, c.fail(ctx, op, p, model.StatusResearching, err)
	}
	if err := c.setStatus(ctx, p, store.StatusUpdate{Status: model.StatusResearched}); err != nil {
		return nil, c.fail(ctx, op, p, model.StatusResearching, err)
	}

	log.Info("workflow: research complete",
		zap.String("document", loc),
		zap.String("enhancement_status", string(content.EnhancementStatus)),
		zap.Int("sources_succeeded", bundle.Succeeded),
		zap.Int("sources_attempted", bundle.Attempted),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &ResearchResult{
		Prospect:          p,
		DocumentPath:      loc,
		EnhancementStatus: content.EnhancementStatus,
		FallbackReason:    content.FallbackReason,
		SourcesSucceeded:  bundle.Succeeded,
		SourcesAttempted:  bundle.Attempted,
		SourceErrors:      bundle.Errors,
	}, nil
}

// CreateProfile runs the profile step. The prospect must have finished
// research and its research document must exist; otherwise nothing is
// written. Sources are not collected again: the analysis uses the source
// snapshot saved by research plus the research document.
func (c *Controller) CreateProfile(ctx context.Context, prospectID string) (res *ProfileResult, err error) {
	const op = "profile"
	start := time.Now()
	defer func() { c.metrics.ObserveStep(op, err == nil, time.Since(start)) }()

	if prospectID == "" {
		return nil, precondition(op, eris.New("prospect_id is required"))
	}

	unlock := c.locks.Lock(prospectID)
	defer unlock()

	p, err := c.get(ctx, op, prospectID)
	if err != nil {
		return nil, err
	}
	if !p.ResearchDone() {
		return nil, precondition(op, eris.Errorf("prospect %s is %s; run research first", p.ID, p.Status))
	}
	exists, err := c.docs.Exists(ctx, p.ID, model.DocumentResearch)
	if err != nil {
		return nil, persistence(op, err)
	}
	if !exists {
		return nil, precondition(op, eris.Errorf("research document for prospect %s does not exist", p.ID))
	}

	log := zap.L().With(zap.String("prospect_id", p.ID), zap.String("company", p.Company))

	if err := c.setStatus(ctx, p, store.StatusUpdate{Status: model.StatusProfiling}); err != nil {
		return nil, persistence(op, err)
	}

	researchText, err := c.docs.Read(ctx, p.ID, model.DocumentResearch)
	if err != nil {
		return nil, c.fail(ctx, op, p, model.StatusProfiling, err)
	}

	bundle := c.readSnapshot(ctx, p)
	content := c.analyzer.Analyze(ctx, bundle, model.DocumentProfile, c.pref, researchText)

	loc, err := c.writeDocument(ctx, p.ID, model.DocumentProfile, content)
	if err != nil {
		return nil, c.fail(ctx, op, p, model.StatusProfiling, err)
	}
	if err := c.setStatus(ctx, p, store.StatusUpdate{Status: model.StatusComplete}); err != nil {
		return nil, c.fail(ctx, op, p, model.StatusProfiling, err)
	}

	log.Info("workflow: profile complete",
		zap.String("document", loc),
		zap.String("enhancement_status", string(content.EnhancementStatus)),
		zap.Int("reused_sources", bundle.Succeeded),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &ProfileResult{
		Prospect:          p,
		DocumentPath:      loc,
		EnhancementStatus: content.EnhancementStatus,
		FallbackReason:    content.FallbackReason,
		ReusedSources:     bundle.Succeeded,
	}, nil
}

// GetProspectData reads a prospect's metadata and, with includeContent,
// the text of its existing documents.
func (c *Controller) GetProspectData(ctx context.Context, prospectID string, includeContent bool) (*ProspectData, error) {
	const op = "get_prospect_data"
	if prospectID == "" {
		return nil, precondition(op, eris.New("prospect_id is required"))
	}
	p, err := c.get(ctx, op, prospectID)
	if err != nil {
		return nil, err
	}

	out := &ProspectData{Prospect: p}
	for _, doc := range []struct {
		kind model.DocumentKind
		path *string
		text *string
	}{
		{model.DocumentResearch, &out.ResearchPath, &out.ResearchText},
		{model.DocumentProfile, &out.ProfilePath, &out.ProfileText},
	} {
		ok, err := c.docs.Exists(ctx, p.ID, doc.kind)
		if err != nil {
			return nil, persistence(op, err)
		}
		if !ok {
			continue
		}
		*doc.path = c.docs.Location(p.ID, doc.kind)
		if includeContent {
			if *doc.text, err = c.docs.Read(ctx, p.ID, doc.kind); err != nil {
				return nil, persistence(op, err)
			}
		}
	}
	return out, nil
}

// Search lists prospects matching f.
func (c *Controller) Search(ctx context.Context, f store.SearchFilter) ([]model.Prospect, error) {
	const op = "search"
	if f.Status != "" && !f.Status.Valid() {
		return nil, precondition(op, eris.Errorf("unknown status %q", f.Status))
	}
	if f.Limit < 0 {
		return nil, precondition(op, eris.New("limit must not be negative"))
	}
	out, err := c.store.Search(ctx, f)
	if err != nil {
		return nil, persistence(op, err)
	}
	return out, nil
}

func (c *Controller) get(ctx context.Context, op, id string) (*model.Prospect, error) {
	p, err := c.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, precondition(op, eris.Errorf("prospect %s not found", id))
	}
	if err != nil {
		return nil, persistence(op, err)
	}
	return p, nil
}

func (c *Controller) writeDocument(ctx context.Context, id string, kind model.DocumentKind, content *model.StructuredContent) (string, error) {
	text, err := report.Render(content, kind)
	if err != nil {
		return "", err
	}
	return c.docs.Write(ctx, id, kind, text)
}

// writeSnapshot stores b beside the research document.
func (c *Controller) writeSnapshot(ctx context.Context, id string, b *model.AggregateBundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "workflow: encode source snapshot")
	}
	_, err = c.docs.Write(ctx, id, model.DocumentSources, string(data))
	return err
}

// readSnapshot loads the bundle saved by the last research run. Prospects
// researched without a snapshot fall back to the source cache.
func (c *Controller) readSnapshot(ctx context.Context, p *model.Prospect) *model.AggregateBundle {
	text, err := c.docs.Read(ctx, p.ID, model.DocumentSources)
	if err == nil {
		b := model.NewBundle(p.Query())
		if err = json.Unmarshal([]byte(text), b); err == nil {
			if b.Results == nil {
				b.Results = make(map[model.SourceName]model.RawSourceResult)
			}
			return b
		}
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		zap.L().Warn("workflow: source snapshot unreadable, using cache",
			zap.String("prospect_id", p.ID), zap.Error(err))
	}
	return c.collector.Cached(ctx, p.Query())
}

func (c *Controller) setStatus(ctx context.Context, p *model.Prospect, u store.StatusUpdate) error {
	if err := c.store.UpdateStatus(ctx, p.ID, u); err != nil {
		return err
	}
	p.Status = u.Status
	p.FailedFrom = u.FailedFrom
	p.LastError = u.LastError
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// fail marks p failed in step and returns the persistence error. The status
// write survives cancellation of ctx.
func (c *Controller) fail(ctx context.Context, op string, p *model.Prospect, step model.ProspectStatus, cause error) error {
	werr := persistence(op, cause)
	zap.L().Error("workflow: step failed",
		zap.String("prospect_id", p.ID),
		zap.String("step", string(step)),
		zap.Error(cause),
	)
	u := store.StatusUpdate{Status: model.StatusFailed, FailedFrom: step, LastError: werr.Error()}
	if err := c.setStatus(context.WithoutCancel(ctx), p, u); err != nil {
		zap.L().Error("workflow: record failure", zap.String("prospect_id", p.ID), zap.Error(err))
	}
	return werr
}
