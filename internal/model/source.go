package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SourceName identifies one external data capability.
type SourceName string

const (
	SourceWebsite  SourceName = "website"
	SourceLinkedIn SourceName = "linkedin"
	SourceContacts SourceName = "contacts"
	SourceSearch   SourceName = "search"
	SourceBrowser  SourceName = "browser"
	SourceJobs     SourceName = "jobs"
	SourceNews     SourceName = "news"
	SourceRegistry SourceName = "registry"
	SourcePlaces   SourceName = "places"
)

// AllSources lists every adapter kind in canonical order. Bundles, error
// manifests, and reports iterate sources in this order.
var AllSources = []SourceName{
	SourceWebsite,
	SourceLinkedIn,
	SourceContacts,
	SourceSearch,
	SourceBrowser,
	SourceJobs,
	SourceNews,
	SourceRegistry,
	SourcePlaces,
}

// ParseSourceName maps a config string onto a SourceName.
func ParseSourceName(s string) (SourceName, bool) {
	name := SourceName(strings.ToLower(strings.TrimSpace(s)))
	for _, src := range AllSources {
		if src == name {
			return src, true
		}
	}
	return "", false
}

func sourceIndex(s SourceName) int {
	for i, src := range AllSources {
		if src == s {
			return i
		}
	}
	return len(AllSources)
}

// Payload is the typed output of one adapter. Each adapter kind has its own
// concrete payload type; Kind ties the value back to its source.
type Payload interface {
	Kind() SourceName
	// Text returns the payload's free-form prose, used for excerpts and
	// keyword matching. May be empty.
	Text() string
}

// WebsitePayload is the company homepage content.
type WebsitePayload struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown"`
	FetchedVia  string `json:"fetched_via"`
}

func (p *WebsitePayload) Kind() SourceName { return SourceWebsite }
func (p *WebsitePayload) Text() string     { return joinNonEmpty("\n\n", p.Description, p.Markdown) }

// Person is someone associated with the company.
type Person struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// LinkedInPayload holds the LinkedIn company profile.
type LinkedInPayload struct {
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	Industry      string   `json:"industry,omitempty"`
	EmployeeCount string   `json:"employee_count,omitempty"`
	Headquarters  string   `json:"headquarters,omitempty"`
	Founded       string   `json:"founded,omitempty"`
	Specialties   string   `json:"specialties,omitempty"`
	CompanyType   string   `json:"company_type,omitempty"`
	People        []Person `json:"people,omitempty"`
}

func (p *LinkedInPayload) Kind() SourceName { return SourceLinkedIn }
func (p *LinkedInPayload) Text() string     { return joinNonEmpty("\n", p.Description, p.Specialties) }

// Contact is a person returned by the contact-enrichment API.
type Contact struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"` // E.164
	Seniority   string `json:"seniority,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// ContactsPayload lists enriched contacts at the company.
type ContactsPayload struct {
	Contacts []Contact `json:"contacts"`
}

func (p *ContactsPayload) Kind() SourceName { return SourceContacts }
func (p *ContactsPayload) Text() string {
	lines := make([]string, 0, len(p.Contacts))
	for _, c := range p.Contacts {
		lines = append(lines, joinNonEmpty(", ", c.Name, c.Title))
	}
	return strings.Join(lines, "\n")
}

// SearchHit is a single web search result.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchPayload holds alternate web search results.
type SearchPayload struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

func (p *SearchPayload) Kind() SourceName { return SourceSearch }
func (p *SearchPayload) Text() string {
	parts := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		parts = append(parts, joinNonEmpty(": ", r.Title, r.Snippet))
	}
	return strings.Join(parts, "\n")
}

// BrowserPayload is a JS-rendered page captured by browser automation.
type BrowserPayload struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

func (p *BrowserPayload) Kind() SourceName { return SourceBrowser }
func (p *BrowserPayload) Text() string     { return p.Markdown }

// JobListing is one open position.
type JobListing struct {
	Title       string `json:"title"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Posted      string `json:"posted,omitempty"`
	Description string `json:"description,omitempty"`
	Board       string `json:"board,omitempty"`
}

// JobsPayload lists open positions found on careers pages and job boards.
type JobsPayload struct {
	CareersURL string       `json:"careers_url,omitempty"`
	Listings   []JobListing `json:"listings"`
}

func (p *JobsPayload) Kind() SourceName { return SourceJobs }
func (p *JobsPayload) Text() string {
	parts := make([]string, 0, len(p.Listings))
	for _, l := range p.Listings {
		parts = append(parts, joinNonEmpty(" - ", l.Title, l.Description))
	}
	return strings.Join(parts, "\n")
}

// Article is a news item mentioning the company.
type Article struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Source    string    `json:"source,omitempty"`
	Published time.Time `json:"published"`
}

// NewsPayload lists recent news articles, newest first.
type NewsPayload struct {
	Articles []Article `json:"articles"`
}

func (p *NewsPayload) Kind() SourceName { return SourceNews }
func (p *NewsPayload) Text() string {
	parts := make([]string, 0, len(p.Articles))
	for _, a := range p.Articles {
		parts = append(parts, a.Title)
	}
	return strings.Join(parts, "\n")
}

// RegistryRecord is a government business-register entry.
type RegistryRecord struct {
	Number     string `json:"number"` // ABN
	Name       string `json:"name"`
	EntityType string `json:"entity_type,omitempty"`
	Status     string `json:"status,omitempty"`
	State      string `json:"state,omitempty"`
	Postcode   string `json:"postcode,omitempty"`
	Registered string `json:"registered,omitempty"`
	Score      int    `json:"score,omitempty"`
}

// RegistryPayload holds matching register entries, best match first.
type RegistryPayload struct {
	Records []RegistryRecord `json:"records"`
}

func (p *RegistryPayload) Kind() SourceName { return SourceRegistry }
func (p *RegistryPayload) Text() string     { return "" }

// PlacesPayload is the business listing for the company.
type PlacesPayload struct {
	Name        string  `json:"name"`
	Address     string  `json:"address,omitempty"`
	Website     string  `json:"website,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	RatingCount int     `json:"rating_count,omitempty"`
}

func (p *PlacesPayload) Kind() SourceName { return SourcePlaces }
func (p *PlacesPayload) Text() string     { return "" }

// RawSourceResult is the outcome of one adapter invocation. Exactly one of
// Payload and Error is populated; use Succeeded and Failed to construct it.
type RawSourceResult struct {
	Source    SourceName    `json:"source"`
	Success   bool          `json:"success"`
	Payload   Payload       `json:"-"`
	Error     string        `json:"error,omitempty"`
	FetchedAt time.Time     `json:"fetched_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Succeeded builds a successful result for p.
func Succeeded(p Payload, fetchedAt time.Time, d time.Duration) RawSourceResult {
	return RawSourceResult{
		Source:    p.Kind(),
		Success:   true,
		Payload:   p,
		FetchedAt: fetchedAt,
		Duration:  d,
	}
}

// Failed builds a failed result. An empty detail is replaced so the error
// is always materially populated.
func Failed(src SourceName, detail string, fetchedAt time.Time, d time.Duration) RawSourceResult {
	if strings.TrimSpace(detail) == "" {
		detail = "unknown failure"
	}
	return RawSourceResult{
		Source:    src,
		Error:     detail,
		FetchedAt: fetchedAt,
		Duration:  d,
	}
}

type rawSourceResultJSON struct {
	Source    SourceName      `json:"source"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Duration  time.Duration   `json:"duration_ns"`
}

// MarshalJSON encodes the payload alongside its source tag.
func (r RawSourceResult) MarshalJSON() ([]byte, error) {
	out := rawSourceResultJSON{
		Source:    r.Source,
		Success:   r.Success,
		Error:     r.Error,
		FetchedAt: r.FetchedAt,
		Duration:  r.Duration,
	}
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal %s payload", r.Source)
		}
		out.Payload = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload into the concrete type for its source.
func (r *RawSourceResult) UnmarshalJSON(data []byte) error {
	var in rawSourceResultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return eris.Wrap(err, "model: unmarshal source result")
	}
	*r = RawSourceResult{
		Source:    in.Source,
		Success:   in.Success,
		Error:     in.Error,
		FetchedAt: in.FetchedAt,
		Duration:  in.Duration,
	}
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	p, err := DecodePayload(in.Source, in.Payload)
	if err != nil {
		return err
	}
	r.Payload = p
	return nil
}

// DecodePayload maps a source name to its concrete payload type and decodes raw.
func DecodePayload(src SourceName, raw []byte) (Payload, error) {
	var p Payload
	switch src {
	case SourceWebsite:
		p = &WebsitePayload{}
	case SourceLinkedIn:
		p = &LinkedInPayload{}
	case SourceContacts:
		p = &ContactsPayload{}
	case SourceSearch:
		p = &SearchPayload{}
	case SourceBrowser:
		p = &BrowserPayload{}
	case SourceJobs:
		p = &JobsPayload{}
	case SourceNews:
		p = &NewsPayload{}
	case SourceRegistry:
		p = &RegistryPayload{}
	case SourcePlaces:
		p = &PlacesPayload{}
	default:
		return nil, eris.Errorf("model: unknown source %q", src)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("model: decode %s payload", src))
	}
	return p, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}
