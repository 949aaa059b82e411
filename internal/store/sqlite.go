package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL,
	domain      TEXT,
	status      TEXT NOT NULL DEFAULT 'pending',
	failed_from TEXT NOT NULL DEFAULT '',
	last_error  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_prospects_domain ON prospects(domain);
CREATE INDEX IF NOT EXISTS idx_prospects_company ON prospects(company COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, q model.CompanyQuery) (*model.Prospect, error) {
	p, err := newProspect(q)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prospects (id, company, domain, status, failed_from, last_error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '', '', ?, ?)`,
		p.ID, p.Company, nullable(p.Domain), string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert prospect %s", p.Company)
	}
	return p, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	p, err := scanProspect(row)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get prospect %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) GetByDomain(ctx context.Context, domain string) (*model.Prospect, error) {
	domain = model.NormalizeDomain(domain)
	if domain == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+prospectColumns+` FROM prospects WHERE domain = ?`, domain)
	return scanProspect(row)
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*model.Prospect, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE company = ? COLLATE NOCASE
		 ORDER BY updated_at DESC LIMIT 1`,
		name,
	)
	return scanProspect(row)
}

func (s *SQLiteStore) FindUnclaimedByName(ctx context.Context, name string) (*model.Prospect, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects
		 WHERE company = ? COLLATE NOCASE AND (domain IS NULL OR domain = '')
		 ORDER BY updated_at DESC LIMIT 1`,
		name,
	)
	return scanProspect(row)
}

func (s *SQLiteStore) ClaimDomain(ctx context.Context, id, domain string) error {
	domain = model.NormalizeDomain(domain)
	if domain == "" {
		return eris.Errorf("sqlite: claim domain for %s: empty domain", id)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET domain = ?, updated_at = ?
		 WHERE id = ? AND (domain IS NULL OR domain = '')`,
		domain, time.Now().UTC().Truncate(time.Microsecond), id,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrDomainTaken, "sqlite: claim domain %s", domain)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: claim domain %s", domain)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: claim domain for %s", id)
	}
	return nil
}

// isSQLiteUnique reports whether err is a UNIQUE constraint violation.
func isSQLiteUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, u StatusUpdate) error {
	u, err := normalizeUpdate(u)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET status = ?, failed_from = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(u.Status), string(u.FailedFrom), u.LastError, time.Now().UTC().Truncate(time.Microsecond), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect status %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: update prospect status %s", id)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, f SearchFilter) ([]model.Prospect, error) {
	query, args, err := searchQuery(f, sq.Question)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build search")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search prospects")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search prospects iterate")
}

// scanProspect returns nil, nil for sql.ErrNoRows.
func scanProspect(row scannable) (*model.Prospect, error) {
	var (
		p          model.Prospect
		domain     sql.NullString
		status     string
		failedFrom string
	)
	err := row.Scan(&p.ID, &p.Company, &domain, &status, &failedFrom, &p.LastError, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan prospect")
	}
	p.Domain = domain.String
	p.Status = model.ProspectStatus(status)
	p.FailedFrom = model.ProspectStatus(failedFrom)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
