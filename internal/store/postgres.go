package store

import (
	"context"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy
// it too.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const pgUniqueViolation = "23505"

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company     TEXT NOT NULL,
	domain      TEXT UNIQUE,
	status      TEXT NOT NULL DEFAULT 'pending',
	failed_from TEXT NOT NULL DEFAULT '',
	last_error  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospects_company_lower ON prospects(LOWER(company));
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, q model.CompanyQuery) (*model.Prospect, error) {
	p, err := newProspect(q)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO prospects (id, company, domain, status, failed_from, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, '', '', $5, $6)`,
		p.ID, p.Company, nullable(p.Domain), string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert prospect %s", p.Company)
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id)
	p, err := scanPgProspect(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get prospect %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetByDomain(ctx context.Context, domain string) (*model.Prospect, error) {
	domain = model.NormalizeDomain(domain)
	if domain == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE domain = $1`, domain)
	return scanPgProspect(row)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*model.Prospect, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE LOWER(company) = LOWER($1)
		 ORDER BY updated_at DESC LIMIT 1`,
		name,
	)
	return scanPgProspect(row)
}

func (s *PostgresStore) FindUnclaimedByName(ctx context.Context, name string) (*model.Prospect, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+prospectColumns+` FROM prospects
		 WHERE LOWER(company) = LOWER($1) AND (domain IS NULL OR domain = '')
		 ORDER BY updated_at DESC LIMIT 1`,
		name,
	)
	return scanPgProspect(row)
}

func (s *PostgresStore) ClaimDomain(ctx context.Context, id, domain string) error {
	domain = model.NormalizeDomain(domain)
	if domain == "" {
		return eris.Errorf("postgres: claim domain for %s: empty domain", id)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET domain = $1, updated_at = $2
		 WHERE id = $3 AND (domain IS NULL OR domain = '')`,
		domain, time.Now().UTC(), id,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return eris.Wrapf(ErrDomainTaken, "postgres: claim domain %s", domain)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: claim domain %s", domain)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: claim domain for %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, u StatusUpdate) error {
	u, err := normalizeUpdate(u)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET status = $1, failed_from = $2, last_error = $3, updated_at = $4 WHERE id = $5`,
		string(u.Status), string(u.FailedFrom), u.LastError, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update prospect status %s", id)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, f SearchFilter) ([]model.Prospect, error) {
	query, args, err := searchQuery(f, sq.Dollar)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build search")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search prospects")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanPgProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search prospects iterate")
}

// scanPgProspect returns nil, nil for pgx.ErrNoRows.
func scanPgProspect(row scannable) (*model.Prospect, error) {
	var (
		p          model.Prospect
		domain     *string
		status     string
		failedFrom string
	)
	err := row.Scan(&p.ID, &p.Company, &domain, &status, &failedFrom, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan prospect")
	}
	if domain != nil {
		p.Domain = *domain
	}
	p.Status = model.ProspectStatus(status)
	p.FailedFrom = model.ProspectStatus(failedFrom)
	return &p, nil
}
