package model

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ProspectStatus represents the workflow state of a prospect.
type ProspectStatus string

const (
	StatusPending     ProspectStatus = "pending"
	StatusResearching ProspectStatus = "researching"
	StatusResearched  ProspectStatus = "researched"
	StatusProfiling   ProspectStatus = "profiling"
	StatusComplete    ProspectStatus = "complete"
	StatusFailed      ProspectStatus = "failed"
)

// Valid reports whether s is one of the known workflow states.
func (s ProspectStatus) Valid() bool {
	switch s {
	case StatusPending, StatusResearching, StatusResearched, StatusProfiling, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Prospect is a company under research. Rich content lives in the generated
// documents; this record only tracks identity and workflow progress.
type Prospect struct {
	ID         string         `json:"id"`
	Company    string         `json:"company"`
	Domain     string         `json:"domain,omitempty"`
	Status     ProspectStatus `json:"status"`
	FailedFrom ProspectStatus `json:"failed_from,omitempty"` // step state the prospect failed in
	LastError  string         `json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ResearchDone reports whether the prospect's status implies the research
// step has completed at least once.
func (p *Prospect) ResearchDone() bool {
	switch p.Status {
	case StatusResearched, StatusProfiling, StatusComplete:
		return true
	case StatusFailed:
		return p.FailedFrom == StatusProfiling
	}
	return false
}

// Query returns the lookup identifiers adapters use for this prospect.
func (p *Prospect) Query() CompanyQuery {
	return CompanyQuery{ProspectID: p.ID, Name: p.Company, Domain: p.Domain}
}

// CompanyQuery identifies the company the source adapters look up.
type CompanyQuery struct {
	ProspectID string `json:"prospect_id,omitempty"`
	Name       string `json:"name"`
	Domain     string `json:"domain,omitempty"`
}

// ParseCompany interprets free-form input as either a domain/URL or a
// company name. For domains the name is derived from the first label.
func ParseCompany(input string) CompanyQuery {
	in := strings.TrimSpace(input)
	if looksLikeDomain(in) {
		domain := NormalizeDomain(in)
		label := domain
		if i := strings.Index(label, "."); i > 0 {
			label = label[:i]
		}
		label = strings.ReplaceAll(label, "-", " ")
		return CompanyQuery{
			Name:   cases.Title(language.English).String(label),
			Domain: domain,
		}
	}
	return CompanyQuery{Name: in}
}

// URL returns the company homepage URL, or "" when no domain is known.
func (q CompanyQuery) URL() string {
	if q.Domain == "" {
		return ""
	}
	return "https://" + q.Domain
}

// DisplayName prefers the company name, falling back to the domain.
func (q CompanyQuery) DisplayName() string {
	if q.Name != "" {
		return q.Name
	}
	return q.Domain
}

// CacheKey is a stable, case-insensitive identifier for the company.
func (q CompanyQuery) CacheKey() string {
	if q.Domain != "" {
		return strings.ToLower(q.Domain)
	}
	return strings.Join(strings.Fields(strings.ToLower(q.Name)), "-")
}

// NormalizeDomain strips scheme, "www.", port, and path from a URL or host.
func NormalizeDomain(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return strings.TrimPrefix(strings.TrimSpace(strings.ToLower(raw)), "www.")
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func looksLikeDomain(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	dot := strings.LastIndex(s, ".")
	return dot > 0 && dot < len(s)-2
}
