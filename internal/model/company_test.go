package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProspectStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ProspectStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusResearching, "researching"},
		{StatusResearched, "researched"},
		{StatusProfiling, "profiling"},
		{StatusComplete, "complete"},
		{StatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
			assert.True(t, tt.status.Valid())
		})
	}

	assert.False(t, ProspectStatus("archived").Valid())
}

func TestProspect_ResearchDone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Prospect
		want bool
	}{
		{"pending", Prospect{Status: StatusPending}, false},
		{"researching", Prospect{Status: StatusResearching}, false},
		{"researched", Prospect{Status: StatusResearched}, true},
		{"profiling", Prospect{Status: StatusProfiling}, true},
		{"complete", Prospect{Status: StatusComplete}, true},
		{"failed in research", Prospect{Status: StatusFailed, FailedFrom: StatusResearching}, false},
		{"failed in profile", Prospect{Status: StatusFailed, FailedFrom: StatusProfiling}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.p.ResearchDone())
		})
	}
}

func TestParseCompany(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want CompanyQuery
	}{
		{"Acme Pty Ltd", CompanyQuery{Name: "Acme Pty Ltd"}},
		{"  Acme  ", CompanyQuery{Name: "Acme"}},
		{"acme.com.au", CompanyQuery{Name: "Acme", Domain: "acme.com.au"}},
		{"https://www.Blue-Sky.io/about", CompanyQuery{Name: "Blue Sky", Domain: "blue-sky.io"}},
		{"http://example.org:8080", CompanyQuery{Name: "Example", Domain: "example.org"}},
		{"Acme Inc.", CompanyQuery{Name: "Acme Inc."}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseCompany(tt.in))
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme.com", NormalizeDomain("https://www.acme.com/path?q=1"))
	assert.Equal(t, "acme.com", NormalizeDomain("ACME.com"))
	assert.Equal(t, "", NormalizeDomain("   "))
}

func TestCompanyQuery_Helpers(t *testing.T) {
	t.Parallel()

	q := CompanyQuery{Name: "Acme  Pty Ltd"}
	assert.Equal(t, "", q.URL())
	assert.Equal(t, "Acme  Pty Ltd", q.DisplayName())
	assert.Equal(t, "acme-pty-ltd", q.CacheKey())

	q = CompanyQuery{Domain: "Acme.com"}
	assert.Equal(t, "https://Acme.com", q.URL())
	assert.Equal(t, "Acme.com", q.DisplayName())
	assert.Equal(t, "acme.com", q.CacheKey())

	p := &Prospect{ID: "p1", Company: "Acme", Domain: "acme.com"}
	assert.Equal(t, CompanyQuery{ProspectID: "p1", Name: "Acme", Domain: "acme.com"}, p.Query())
}
