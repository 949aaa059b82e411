// Package store persists per-prospect metadata and workflow status.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/model"
)

// ErrNotFound is returned when no prospect has the requested ID.
var ErrNotFound = eris.New("store: prospect not found")

// ErrDomainTaken is returned by ClaimDomain when another prospect already
// owns the domain.
var ErrDomainTaken = eris.New("store: domain already claimed")

// DefaultSearchLimit caps Search when the filter sets no limit.
const DefaultSearchLimit = 50

// SearchFilter specifies criteria for listing prospects. Zero values match
// everything.
type SearchFilter struct {
	Query     string               `json:"query,omitempty"`
	Status    model.ProspectStatus `json:"status,omitempty"`
	HasDomain *bool                `json:"has_domain,omitempty"`
	Limit     int                  `json:"limit,omitempty"`
}

// StatusUpdate is a workflow transition. FailedFrom and LastError are only
// kept when Status is failed; any other status clears them.
type StatusUpdate struct {
	Status     model.ProspectStatus
	FailedFrom model.ProspectStatus
	LastError  string
}

// Store defines the persistence interface for prospect metadata.
type Store interface {
	Create(ctx context.Context, q model.CompanyQuery) (*model.Prospect, error)
	Get(ctx context.Context, id string) (*model.Prospect, error)
	// GetByDomain, FindByName and FindUnclaimedByName return nil, nil when
	// nothing matches.
	GetByDomain(ctx context.Context, domain string) (*model.Prospect, error)
	FindByName(ctx context.Context, name string) (*model.Prospect, error)
	FindUnclaimedByName(ctx context.Context, name string) (*model.Prospect, error)
	// ClaimDomain sets the domain of a prospect that has none. It returns
	// ErrNotFound when id is unknown or already has a domain.
	ClaimDomain(ctx context.Context, id, domain string) error
	UpdateStatus(ctx context.Context, id string, u StatusUpdate) error
	Search(ctx context.Context, f SearchFilter) ([]model.Prospect, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "prospects.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}

// Resolve finds an existing prospect for q. It returns nil, nil when there
// is none.
//
// A query with a domain matches that domain exactly. Failing that it may
// adopt a name match that has no domain yet, which then claims q.Domain; a
// name match that owns a different domain is a different company.
func Resolve(ctx context.Context, s Store, q model.CompanyQuery) (*model.Prospect, error) {
	if q.Domain == "" {
		if strings.TrimSpace(q.Name) == "" {
			return nil, nil
		}
		return s.FindByName(ctx, q.Name)
	}

	p, err := s.GetByDomain(ctx, q.Domain)
	if err != nil || p != nil {
		return p, err
	}
	if strings.TrimSpace(q.Name) == "" {
		return nil, nil
	}
	p, err = s.FindUnclaimedByName(ctx, q.Name)
	if err != nil || p == nil {
		return p, err
	}
	err = s.ClaimDomain(ctx, p.ID, q.Domain)
	switch {
	case errors.Is(err, ErrDomainTaken):
		// Lost a race with another writer for the same domain.
		return s.GetByDomain(ctx, q.Domain)
	case errors.Is(err, ErrNotFound):
		// The record gained a domain since it was read.
		return nil, nil
	case err != nil:
		return nil, err
	}
	p.Domain = model.NormalizeDomain(q.Domain)
	return p, nil
}

func newProspect(q model.CompanyQuery) (*model.Prospect, error) {
	name := strings.TrimSpace(q.Name)
	domain := model.NormalizeDomain(q.Domain)
	if name == "" && domain == "" {
		return nil, eris.New("store: prospect needs a company name or domain")
	}
	if name == "" {
		name = domain
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Prospect{
		ID:        uuid.New().String(),
		Company:   name,
		Domain:    domain,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func normalizeUpdate(u StatusUpdate) (StatusUpdate, error) {
	if !u.Status.Valid() {
		return u, eris.Errorf("store: invalid status %q", u.Status)
	}
	if u.Status != model.StatusFailed {
		u.FailedFrom = ""
		u.LastError = ""
	}
	return u, nil
}

const prospectColumns = "id, company, domain, status, failed_from, last_error, created_at, updated_at"

// searchQuery builds the filtered listing for either placeholder format.
func searchQuery(f SearchFilter, ph sq.PlaceholderFormat) (string, []any, error) {
	qb := sq.Select(prospectColumns).From("prospects").PlaceholderFormat(ph)

	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		qb = qb.Where(sq.Or{
			sq.Like{"LOWER(company)": like},
			sq.Like{"LOWER(COALESCE(domain, ''))": like},
		})
	}
	if f.Status != "" {
		qb = qb.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.HasDomain != nil {
		if *f.HasDomain {
			qb = qb.Where(sq.NotEq{"domain": nil})
		} else {
			qb = qb.Where(sq.Eq{"domain": nil})
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return qb.OrderBy("updated_at DESC", "id").Limit(uint64(limit)).ToSql()
}

// nullable maps "" to NULL. The unique domain index skips NULLs.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}
