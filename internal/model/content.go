package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// EnhancementStatus records which analysis strategy produced a content object.
type EnhancementStatus string

const (
	EnhancementAI       EnhancementStatus = "ai_enhanced"
	EnhancementFallback EnhancementStatus = "manual_fallback"
	EnhancementDisabled EnhancementStatus = "disabled"
)

// Placeholder fills any template field the analysis could not populate.
const Placeholder = "Insufficient data available."

// ResearchFields are the sections of the research report.
type ResearchFields struct {
	CompanyBackground  string `json:"company_background"`
	RecentDevelopments string `json:"recent_developments"`
	TechnologySignals  string `json:"technology_signals"`
	DecisionMakers     string `json:"decision_makers"`
	PainPoints         string `json:"pain_points"`
}

// ProfileTableFields is the fixed, ordered row set of the profile table.
var ProfileTableFields = []string{
	"Company Name",
	"Domain",
	"Industry",
	"Headquarters",
	"Company Size",
	"Founded",
	"Legal Entity",
	"Registration Status",
	"Website Summary",
	"Technology Stack",
	"Hiring Activity",
	"Recent News",
	"Key Contacts",
	"Data Completeness",
}

// ProfileRow is one row of the profile table.
type ProfileRow struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Opener is a conversation starter for outreach. Relevance is 0-100.
type Opener struct {
	Topic     string `json:"topic"`
	Message   string `json:"message"`
	Relevance int    `json:"relevance"`
}

// ProfileFields are the sections of the profile + outreach document.
type ProfileFields struct {
	Table    []ProfileRow `json:"table"`
	Openers  []Opener     `json:"openers"`
	Strategy string       `json:"strategy"`
}

// Value returns the table value for field, or "".
func (p ProfileFields) Value(field string) string {
	for _, r := range p.Table {
		if r.Field == field {
			return r.Value
		}
	}
	return ""
}

// StructuredContent is the normalized analysis output both strategies
// produce and the report generator consumes.
type StructuredContent struct {
	Kind              DocumentKind      `json:"kind"`
	Company           string            `json:"company"`
	Domain            string            `json:"domain,omitempty"`
	Research          ResearchFields    `json:"research"`
	Profile           ProfileFields     `json:"profile"`
	EnhancementStatus EnhancementStatus `json:"enhancement_status"`
	FallbackReason    string            `json:"fallback_reason,omitempty"`
	SourcesSucceeded  int               `json:"sources_succeeded"`
	SourcesAttempted  int               `json:"sources_attempted"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// Missing lists required template fields that are empty for c.Kind.
func (c *StructuredContent) Missing() []string {
	var missing []string
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if blank(c.Company) {
		missing = append(missing, "company")
	}

	switch c.Kind {
	case DocumentResearch:
		r := c.Research
		for _, f := range []struct {
			name, val string
		}{
			{"company_background", r.CompanyBackground},
			{"recent_developments", r.RecentDevelopments},
			{"technology_signals", r.TechnologySignals},
			{"decision_makers", r.DecisionMakers},
			{"pain_points", r.PainPoints},
		} {
			if blank(f.val) {
				missing = append(missing, f.name)
			}
		}
	case DocumentProfile:
		for _, field := range ProfileTableFields {
			if blank(c.Profile.Value(field)) {
				missing = append(missing, "profile."+field)
			}
		}
		if len(c.Profile.Openers) == 0 {
			missing = append(missing, "openers")
		}
		for i, o := range c.Profile.Openers {
			if blank(o.Topic) || blank(o.Message) {
				missing = append(missing, fmt.Sprintf("openers[%d]", i))
			}
		}
		if blank(c.Profile.Strategy) {
			missing = append(missing, "strategy")
		}
	default:
		missing = append(missing, "kind")
	}
	return missing
}

// Validate returns an error naming every missing template field.
func (c *StructuredContent) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return eris.Errorf("model: content missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// FillPlaceholders repairs c so that Missing returns nothing for a valid
// kind: empty fields get Placeholder, the profile table is rebuilt in
// canonical order, relevance is clamped to 0-100, and openers are sorted
// by relevance.
func (c *StructuredContent) FillPlaceholders() {
	if strings.TrimSpace(c.Company) == "" {
		c.Company = "Unknown company"
	}

	fill := func(s *string) {
		if strings.TrimSpace(*s) == "" {
			*s = Placeholder
		}
	}

	switch c.Kind {
	case DocumentResearch:
		fill(&c.Research.CompanyBackground)
		fill(&c.Research.RecentDevelopments)
		fill(&c.Research.TechnologySignals)
		fill(&c.Research.DecisionMakers)
		fill(&c.Research.PainPoints)
	case DocumentProfile:
		table := make([]ProfileRow, 0, len(ProfileTableFields))
		for _, field := range ProfileTableFields {
			v := c.Profile.Value(field)
			fill(&v)
			table = append(table, ProfileRow{Field: field, Value: v})
		}
		c.Profile.Table = table

		openers := c.Profile.Openers[:0]
		for _, o := range c.Profile.Openers {
			if strings.TrimSpace(o.Topic) == "" && strings.TrimSpace(o.Message) == "" {
				continue
			}
			if strings.TrimSpace(o.Topic) == "" {
				o.Topic = "General"
			}
			fill(&o.Message)
			o.Relevance = clampRelevance(o.Relevance)
			openers = append(openers, o)
		}
		if len(openers) == 0 {
			openers = append(openers, Opener{Topic: "Introduction", Message: Placeholder})
		}
		SortOpeners(openers)
		c.Profile.Openers = openers
		fill(&c.Profile.Strategy)
	}
}

// SortOpeners orders openers by relevance descending; ties keep their
// original order.
func SortOpeners(openers []Opener) {
	sort.SliceStable(openers, func(i, j int) bool {
		return openers[i].Relevance > openers[j].Relevance
	})
}

func clampRelevance(r int) int {
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
