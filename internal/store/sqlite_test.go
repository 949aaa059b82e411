package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGet(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p, err := st.Create(ctx, model.CompanyQuery{Name: " Acme Logistics ", Domain: "https://www.Acme.com.au/about"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Acme Logistics", p.Company)
	assert.Equal(t, "acme.com.au", p.Domain)
	assert.Equal(t, model.StatusPending, p.Status)

	got, err := st.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Company, got.Company)
	assert.Equal(t, p.Domain, got.Domain)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSQLite_Get_NotFound(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_Create_Validation(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Create(ctx, model.CompanyQuery{})
	require.Error(t, err)

	p, err := st.Create(ctx, model.CompanyQuery{Domain: "acme.com"})
	require.NoError(t, err)
	assert.Equal(t, "acme.com", p.Company)
}

func TestSQLite_UniqueDomain(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Create(ctx, model.CompanyQuery{Name: "Acme", Domain: "acme.com"})
	require.NoError(t, err)
	_, err = st.Create(ctx, model.CompanyQuery{Name: "Acme Again", Domain: "www.acme.com"})
	require.Error(t, err)

	// Name-only prospects never collide on the domain index.
	_, err = st.Create(ctx, model.CompanyQuery{Name: "Beta"})
	require.NoError(t, err)
	_, err = st.Create(ctx, model.CompanyQuery{Name: "Gamma"})
	require.NoError(t, err)
}

func TestSQLite_Resolve(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	byDomain, err := st.Create(ctx, model.CompanyQuery{Name: "Acme", Domain: "acme.com"})
	require.NoError(t, err)
	byName, err := st.Create(ctx, model.CompanyQuery{Name: "Globex Corporation"})
	require.NoError(t, err)

	got, err := Resolve(ctx, st, model.CompanyQuery{Name: "Something Else", Domain: "ACME.com"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, byDomain.ID, got.ID)

	got, err = Resolve(ctx, st, model.CompanyQuery{Name: "globex corporation"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, byName.ID, got.ID)

	got, err = Resolve(ctx, st, model.CompanyQuery{Name: "Initech", Domain: "initech.com"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Resolve_DomainQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		existing   model.CompanyQuery
		query      model.CompanyQuery
		wantSame   bool
		wantDomain string
	}{
		{
			name:     "name match owning another domain is a different company",
			existing: model.CompanyQuery{Name: "Acme", Domain: "acme.io"},
			query:    model.CompanyQuery{Name: "Acme", Domain: "acme.com"},
		},
		{
			name:       "name-only match claims the domain",
			existing:   model.CompanyQuery{Name: "Acme"},
			query:      model.CompanyQuery{Name: "ACME", Domain: "https://www.acme.com"},
			wantSame:   true,
			wantDomain: "acme.com",
		},
		{
			name:       "exact domain wins over name",
			existing:   model.CompanyQuery{Name: "Acme Holdings", Domain: "acme.com"},
			query:      model.CompanyQuery{Name: "Acme", Domain: "acme.com"},
			wantSame:   true,
			wantDomain: "acme.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newTestSQLiteStore(t)
			ctx := context.Background()

			existing, err := st.Create(ctx, tt.existing)
			require.NoError(t, err)

			got, err := Resolve(ctx, st, tt.query)
			require.NoError(t, err)
			if !tt.wantSame {
				assert.Nil(t, got)
				stored, err := st.Get(ctx, existing.ID)
				require.NoError(t, err)
				assert.Equal(t, existing.Domain, stored.Domain, "existing prospect keeps its domain")
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, existing.ID, got.ID)
			assert.Equal(t, tt.wantDomain, got.Domain)

			stored, err := st.Get(ctx, existing.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDomain, stored.Domain)
		})
	}
}

func TestSQLite_ClaimDomain(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	owner, err := st.Create(ctx, model.CompanyQuery{Name: "Acme", Domain: "acme.com"})
	require.NoError(t, err)
	nameOnly, err := st.Create(ctx, model.CompanyQuery{Name: "Acme"})
	require.NoError(t, err)

	got, err := st.FindUnclaimedByName(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, nameOnly.ID, got.ID)

	err = st.ClaimDomain(ctx, nameOnly.ID, "www.acme.com")
	assert.True(t, errors.Is(err, ErrDomainTaken), "unique index guards the domain")

	err = st.ClaimDomain(ctx, owner.ID, "acme.net")
	assert.True(t, errors.Is(err, ErrNotFound), "a claimed domain is never overwritten")

	require.NoError(t, st.ClaimDomain(ctx, nameOnly.ID, "https://acme.net/"))
	stored, err := st.Get(ctx, nameOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme.net", stored.Domain)

	got, err = st.FindUnclaimedByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.Error(t, st.ClaimDomain(ctx, nameOnly.ID, "  "))
}

func TestSQLite_UpdateStatus(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p, err := st.Create(ctx, model.CompanyQuery{Name: "Acme"})
	require.NoError(t, err)

	require.NoError(t, st.UpdateStatus(ctx, p.ID, StatusUpdate{
		Status:     model.StatusFailed,
		FailedFrom: model.StatusResearching,
		LastError:  "persistence: disk full",
	}))
	got, err := st.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, model.StatusResearching, got.FailedFrom)
	assert.Equal(t, "persistence: disk full", got.LastError)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	// Leaving failed clears the failure details.
	require.NoError(t, st.UpdateStatus(ctx, p.ID, StatusUpdate{Status: model.StatusResearched, LastError: "stale"}))
	got, err = st.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResearched, got.Status)
	assert.Empty(t, got.FailedFrom)
	assert.Empty(t, got.LastError)

	err = st.UpdateStatus(ctx, "missing", StatusUpdate{Status: model.StatusComplete})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = st.UpdateStatus(ctx, p.ID, StatusUpdate{Status: "archived"})
	require.Error(t, err)
}

func TestSQLite_Search(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	acme, err := st.Create(ctx, model.CompanyQuery{Name: "Acme Logistics", Domain: "acme.com.au"})
	require.NoError(t, err)
	_, err = st.Create(ctx, model.CompanyQuery{Name: "Acme Foods"})
	require.NoError(t, err)
	_, err = st.Create(ctx, model.CompanyQuery{Name: "Globex", Domain: "globex.com"})
	require.NoError(t, err)
	require.NoError(t, st.UpdateStatus(ctx, acme.ID, StatusUpdate{Status: model.StatusResearched}))

	yes, no := true, false
	tests := []struct {
		name   string
		filter SearchFilter
		want   []string
	}{
		{"all", SearchFilter{}, []string{"Acme Logistics", "Acme Foods", "Globex"}},
		{"query matches name", SearchFilter{Query: "ACME"}, []string{"Acme Logistics", "Acme Foods"}},
		{"query matches domain", SearchFilter{Query: "globex.com"}, []string{"Globex"}},
		{"status", SearchFilter{Status: model.StatusResearched}, []string{"Acme Logistics"}},
		{"has domain", SearchFilter{HasDomain: &yes}, []string{"Acme Logistics", "Globex"}},
		{"no domain", SearchFilter{HasDomain: &no}, []string{"Acme Foods"}},
		{"combined", SearchFilter{Query: "acme", HasDomain: &yes}, []string{"Acme Logistics"}},
		{"no match", SearchFilter{Query: "initech"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Search(ctx, tt.filter)
			require.NoError(t, err)
			var names []string
			for _, p := range got {
				names = append(names, p.Company)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}

	got, err := st.Search(ctx, SearchFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Logistics", got[0].Company, "most recently updated first")
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	t.Parallel()
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
