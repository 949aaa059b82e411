package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/source"
)

const (
	maxBackgroundChars = 600
	maxHeadlines       = 5
	maxDecisionMakers  = 5
	maxOpeners         = 5
)

// Rules is the deterministic strategy. It is total: every bundle,
// including an empty one, yields content that passes Validate after
// FillPlaceholders.
type Rules struct {
	catalog *Catalog
}

// NewRules creates the rule-based strategy over catalog, or the embedded
// catalog when nil.
func NewRules(catalog *Catalog) *Rules {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Rules{catalog: catalog}
}

// Research fills the research report fields from b.
func (r *Rules) Research(b *model.AggregateBundle) model.ResearchFields {
	corpus := corpusOf(b, "")
	signals := r.catalog.DetectTechnologies(corpus)
	return model.ResearchFields{
		CompanyBackground:  background(b),
		RecentDevelopments: recentDevelopments(b),
		TechnologySignals:  formatSignals(signals),
		DecisionMakers:     decisionMakers(b),
		PainPoints:         painPoints(b, signals),
	}
}

// Profile fills the profile table, openers and strategy from b and the
// research report text.
func (r *Rules) Profile(b *model.AggregateBundle, researchText string) model.ProfileFields {
	corpus := corpusOf(b, researchText)
	signals := r.catalog.DetectTechnologies(corpus)
	openers := r.Openers(corpus, companyName(b))
	return model.ProfileFields{
		Table:    profileTable(b, signals),
		Openers:  openers,
		Strategy: strategy(b, openers),
	}
}

// Openers scores every catalog topic by keyword overlap with corpus:
// 40 + 15 per distinct keyword hit, capped at 100, or 20 with no hits.
// Ties keep catalog order. The top five are returned.
func (r *Rules) Openers(corpus, company string) []model.Opener {
	if company == "" {
		company = "your company"
	}
	out := make([]model.Opener, 0, len(r.catalog.Openers))
	for _, t := range r.catalog.Openers {
		hits := len(matches(t.Keywords, t.patterns, corpus))
		out = append(out, model.Opener{
			Topic:     t.Topic,
			Message:   strings.ReplaceAll(t.Message, "{company}", company),
			Relevance: relevance(hits),
		})
	}
	model.SortOpeners(out)
	if len(out) > maxOpeners {
		out = out[:maxOpeners]
	}
	return out
}

func relevance(hits int) int {
	if hits <= 0 {
		return 20
	}
	return min(100, 40+15*hits)
}

// corpusOf joins every text the heuristics can match against.
func corpusOf(b *model.AggregateBundle, extra string) string {
	var parts []string
	for _, t := range b.Texts() {
		parts = append(parts, t.Text)
	}
	if j := b.Jobs(); j != nil {
		for _, l := range j.Listings {
			parts = append(parts, l.Title)
		}
	}
	if extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "\n")
}

func companyName(b *model.AggregateBundle) string {
	if name := strings.TrimSpace(b.Query.Name); name != "" {
		return name
	}
	if p := b.Places(); p != nil && p.Name != "" {
		return p.Name
	}
	if w := b.Website(); w != nil && w.Title != "" {
		return w.Title
	}
	return b.Query.Domain
}

// background is a fact line from LinkedIn and the registry followed by a
// leading excerpt of the longest available text.
func background(b *model.AggregateBundle) string {
	var facts []string
	if li := b.LinkedIn(); li != nil {
		if li.Industry != "" {
			facts = append(facts, "Industry: "+li.Industry)
		}
		if li.Headquarters != "" {
			facts = append(facts, "Headquarters: "+li.Headquarters)
		}
		if li.EmployeeCount != "" {
			facts = append(facts, "Size: "+li.EmployeeCount+" employees")
		}
		if li.Founded != "" {
			facts = append(facts, "Founded: "+li.Founded)
		}
	}
	if rec := registryRecord(b); rec != nil {
		entity := rec.Name
		if rec.EntityType != "" {
			entity += " (" + rec.EntityType + ")"
		}
		facts = append(facts, "Registered entity: "+entity)
	}

	var longest string
	for _, t := range b.Texts() {
		if utf8.RuneCountInString(t.Text) > utf8.RuneCountInString(longest) {
			longest = t.Text
		}
	}

	var parts []string
	if len(facts) > 0 {
		parts = append(parts, strings.Join(facts, ". ")+".")
	}
	if ex := Excerpt(longest, maxBackgroundChars); ex != "" {
		parts = append(parts, ex)
	}
	return strings.Join(parts, "\n\n")
}

// Excerpt returns the leading part of text, at most n runes, cut at the
// last sentence end or else the last word boundary.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	cut := string([]rune(text)[:n])
	if i := strings.LastIndexAny(cut, ".!?"); i > n/3 {
		return cut[:i+1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return strings.TrimRight(cut[:i], ",;:")
	}
	return cut
}

func recentDevelopments(b *model.AggregateBundle) string {
	if n := b.News(); n != nil && len(n.Articles) > 0 {
		var lines []string
		for _, a := range n.Articles {
			if len(lines) == maxHeadlines {
				break
			}
			line := "- " + a.Title
			var meta []string
			if a.Source != "" {
				meta = append(meta, a.Source)
			}
			if !a.Published.IsZero() {
				meta = append(meta, a.Published.Format("2 Jan 2006"))
			}
			if len(meta) > 0 {
				line += " (" + strings.Join(meta, ", ") + ")"
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n")
	}
	return hiringSummary(b)
}

func hiringSummary(b *model.AggregateBundle) string {
	j := b.Jobs()
	if j == nil || len(j.Listings) == 0 {
		return ""
	}
	var titles []string
	for i, l := range j.Listings {
		if i == 3 {
			break
		}
		titles = append(titles, l.Title)
	}
	noun := "roles"
	if len(j.Listings) == 1 {
		noun = "role"
	}
	return fmt.Sprintf("Currently hiring for %d %s, including %s.", len(j.Listings), noun, strings.Join(titles, ", "))
}

func formatSignals(signals []Signal) string {
	lines := make([]string, 0, len(signals))
	for _, s := range signals {
		lines = append(lines, "- "+s.Category+": "+strings.Join(s.Keywords, ", "))
	}
	return strings.Join(lines, "\n")
}

func decisionMakers(b *model.AggregateBundle) string {
	var lines []string
	if c := b.Contacts(); c != nil && len(c.Contacts) > 0 {
		contacts := append([]model.Contact(nil), c.Contacts...)
		source.SortContacts(contacts)
		for _, ct := range contacts {
			if len(lines) == maxDecisionMakers {
				break
			}
			line := "- " + ct.Name
			if ct.Title != "" {
				line += ", " + ct.Title
			}
			var reach []string
			if ct.Email != "" {
				reach = append(reach, ct.Email)
			}
			if ct.Phone != "" {
				reach = append(reach, ct.Phone)
			}
			if len(reach) > 0 {
				line += " (" + strings.Join(reach, ", ") + ")"
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n")
	}
	if li := b.LinkedIn(); li != nil {
		for _, p := range li.People {
			if len(lines) == maxDecisionMakers {
				break
			}
			lines = append(lines, "- "+p.Name+", "+p.Title)
		}
	}
	return strings.Join(lines, "\n")
}

// painPoints produces templated sentences keyed off which sources
// succeeded and which signals were detected.
func painPoints(b *model.AggregateBundle, signals []Signal) string {
	if b.Succeeded == 0 {
		return ""
	}
	var pts []string

	if j := b.Jobs(); j != nil {
		switch n := len(j.Listings); {
		case n >= 5:
			pts = append(pts, fmt.Sprintf("Active hiring (%d open roles) suggests scaling pressure on onboarding, tooling and operations.", n))
		case n > 0:
			pts = append(pts, fmt.Sprintf("Hiring for %d role(s) points to growth in specific teams that may outpace current processes.", n))
		}
	}

	switch {
	case len(signals) >= 3:
		pts = append(pts, fmt.Sprintf("A broad technology footprint (%d categories) often brings integration and data-consolidation overhead.", len(signals)))
	case len(signals) > 0:
		cats := make([]string, len(signals))
		for i, s := range signals {
			cats[i] = s.Category
		}
		pts = append(pts, "Existing investment in "+strings.Join(cats, " and ")+" may leave gaps in adjacent workflows.")
	case b.Has(model.SourceWebsite) || b.Has(model.SourceBrowser):
		pts = append(pts, "No clear technology signals on the website; tooling maturity may be an opportunity.")
	}

	if n := b.News(); n != nil && len(n.Articles) > 0 {
		pts = append(pts, "Recent media coverage signals change, and new initiatives usually need delivery support.")
	}

	if p := b.Places(); p != nil && p.RatingCount > 0 && p.Rating < 4.0 {
		pts = append(pts, fmt.Sprintf("Customer reviews average %.1f from %d ratings; service experience may be a priority.", p.Rating, p.RatingCount))
	}

	if rec := registryRecord(b); rec != nil && rec.Status != "" && !strings.EqualFold(rec.Status, "active") {
		pts = append(pts, fmt.Sprintf("Register status is %q; confirm the entity is trading before outreach.", rec.Status))
	}

	if b.Completeness() < 0.5 {
		pts = append(pts, "Limited public footprint; a discovery conversation is needed to surface priorities.")
	}

	lines := make([]string, len(pts))
	for i, p := range pts {
		lines[i] = "- " + p
	}
	return strings.Join(lines, "\n")
}

func registryRecord(b *model.AggregateBundle) *model.RegistryRecord {
	if r := b.Registry(); r != nil && len(r.Records) > 0 {
		return &r.Records[0]
	}
	return nil
}

func profileTable(b *model.AggregateBundle, signals []Signal) []model.ProfileRow {
	li := b.LinkedIn()
	rec := registryRecord(b)
	places := b.Places()

	vals := map[string]string{
		"Company Name":      companyName(b),
		"Domain":            b.Query.Domain,
		"Data Completeness": completeness(b),
	}
	if li != nil {
		vals["Industry"] = li.Industry
		vals["Headquarters"] = li.Headquarters
		if li.EmployeeCount != "" {
			vals["Company Size"] = li.EmployeeCount + " employees"
		}
		vals["Founded"] = li.Founded
	}
	if vals["Headquarters"] == "" && places != nil {
		vals["Headquarters"] = places.Address
	}
	if rec != nil {
		entity := rec.Name
		if rec.EntityType != "" {
			entity += " (" + rec.EntityType + ")"
		}
		if rec.Number != "" {
			entity += ", ABN " + rec.Number
		}
		vals["Legal Entity"] = entity
		status := rec.Status
		if status != "" && rec.Registered != "" {
			status += " since " + rec.Registered
		}
		vals["Registration Status"] = status
		if vals["Headquarters"] == "" && rec.State != "" {
			vals["Headquarters"] = strings.TrimSpace(rec.State + " " + rec.Postcode)
		}
		if vals["Founded"] == "" && len(rec.Registered) >= 4 {
			vals["Founded"] = rec.Registered[:4]
		}
	}
	if w := b.Website(); w != nil {
		summary := w.Description
		if summary == "" {
			summary = Excerpt(w.Markdown, 200)
		}
		vals["Website Summary"] = summary
	}

	var kws []string
	for _, s := range signals {
		kws = append(kws, s.Keywords...)
	}
	vals["Technology Stack"] = strings.Join(kws, ", ")
	vals["Hiring Activity"] = hiringSummary(b)
	if n := b.News(); n != nil && len(n.Articles) > 0 {
		vals["Recent News"] = n.Articles[0].Title
	}
	vals["Key Contacts"] = keyContacts(b)

	rows := make([]model.ProfileRow, 0, len(model.ProfileTableFields))
	for _, f := range model.ProfileTableFields {
		rows = append(rows, model.ProfileRow{Field: f, Value: strings.TrimSpace(vals[f])})
	}
	return rows
}

func completeness(b *model.AggregateBundle) string {
	return fmt.Sprintf("%d of %d sources (%.0f%%)", b.Succeeded, b.Attempted, b.Completeness()*100)
}

func keyContacts(b *model.AggregateBundle) string {
	var out []string
	if c := b.Contacts(); c != nil {
		contacts := append([]model.Contact(nil), c.Contacts...)
		source.SortContacts(contacts)
		for i, ct := range contacts {
			if i == 3 {
				break
			}
			out = append(out, personLabel(ct.Name, ct.Title))
		}
	}
	if len(out) == 0 {
		if li := b.LinkedIn(); li != nil {
			for i, p := range li.People {
				if i == 3 {
					break
				}
				out = append(out, personLabel(p.Name, p.Title))
			}
		}
	}
	return strings.Join(out, "; ")
}

func personLabel(name, title string) string {
	if title == "" {
		return name
	}
	return name + " (" + title + ")"
}

func strategy(b *model.AggregateBundle, openers []model.Opener) string {
	var lines []string
	if len(openers) > 0 {
		lines = append(lines, fmt.Sprintf("1. Lead with %s (relevance %d).", strings.ToLower(openers[0].Topic), openers[0].Relevance))
	}

	contact, channel := primaryContact(b)
	if contact != "" {
		lines = append(lines, fmt.Sprintf("%d. Address the first message to %s via %s.", len(lines)+1, contact, channel))
	} else {
		lines = append(lines, fmt.Sprintf("%d. Identify a decision maker through the company website or LinkedIn before reaching out.", len(lines)+1))
	}
	if len(openers) > 1 {
		lines = append(lines, fmt.Sprintf("%d. Follow up after a week with %s as a second angle.", len(lines)+1, strings.ToLower(openers[1].Topic)))
	}
	if b.Completeness() < 0.5 {
		lines = append(lines, fmt.Sprintf("%d. Research coverage is thin; open with questions rather than assumptions.", len(lines)+1))
	}
	return strings.Join(lines, "\n")
}

func primaryContact(b *model.AggregateBundle) (string, string) {
	if c := b.Contacts(); c != nil && len(c.Contacts) > 0 {
		contacts := append([]model.Contact(nil), c.Contacts...)
		source.SortContacts(contacts)
		ct := contacts[0]
		channel := "LinkedIn"
		switch {
		case ct.Email != "":
			channel = "email"
		case ct.Phone != "":
			channel = "phone"
		}
		return personLabel(ct.Name, ct.Title), channel
	}
	if li := b.LinkedIn(); li != nil && len(li.People) > 0 {
		return personLabel(li.People[0].Name, li.People[0].Title), "LinkedIn"
	}
	return "", ""
}
