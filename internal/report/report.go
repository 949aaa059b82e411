// Package report renders structured analysis content as markdown documents.
package report

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

var researchSections = []struct {
	title string
	value func(model.ResearchFields) string
}{
	{"Company Background", func(r model.ResearchFields) string { return r.CompanyBackground }},
	{"Recent Developments", func(r model.ResearchFields) string { return r.RecentDevelopments }},
	{"Technology Signals", func(r model.ResearchFields) string { return r.TechnologySignals }},
	{"Decision Makers", func(r model.ResearchFields) string { return r.DecisionMakers }},
	{"Pain Points", func(r model.ResearchFields) string { return r.PainPoints }},
}

// Render formats c as the markdown document for kind. The output depends
// only on c, and every section is present even when its value is the
// placeholder.
func Render(c *model.StructuredContent, kind model.DocumentKind) (string, error) {
	if c == nil {
		return "", eris.New("report: nil content")
	}
	if !kind.Valid() {
		return "", eris.Errorf("report: unknown document kind %q", kind)
	}
	if c.Kind != "" && c.Kind != kind {
		return "", eris.Errorf("report: content is %s, not %s", c.Kind, kind)
	}

	content := clone(c)
	content.Kind = kind
	content.FillPlaceholders()

	var b strings.Builder
	switch kind {
	case model.DocumentProfile:
		renderProfile(&b, content)
	default:
		renderResearch(&b, content)
	}
	return b.String(), nil
}

func renderResearch(b *strings.Builder, c *model.StructuredContent) {
	fmt.Fprintf(b, "# Prospect Research: %s\n\n", c.Company)
	writeMeta(b, c)
	for _, s := range researchSections {
		fmt.Fprintf(b, "## %s\n\n%s\n\n", s.title, strings.TrimSpace(s.value(c.Research)))
	}
}

func renderProfile(b *strings.Builder, c *model.StructuredContent) {
	fmt.Fprintf(b, "# Prospect Profile: %s\n\n", c.Company)
	writeMeta(b, c)

	b.WriteString("## Company Profile\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	for _, row := range c.Profile.Table {
		fmt.Fprintf(b, "| %s | %s |\n", row.Field, cell(row.Value))
	}
	b.WriteString("\n")

	b.WriteString("## Conversation Openers\n\n")
	for i, o := range c.Profile.Openers {
		fmt.Fprintf(b, "%d. **%s** (relevance %d/100)\n   %s\n", i+1, o.Topic, o.Relevance, oneLine(o.Message))
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "## Outreach Strategy\n\n%s\n", strings.TrimSpace(c.Profile.Strategy))
}

func writeMeta(b *strings.Builder, c *model.StructuredContent) {
	if c.Domain != "" {
		fmt.Fprintf(b, "- **Domain:** %s\n", c.Domain)
	}
	generated := "unknown"
	if !c.GeneratedAt.IsZero() {
		generated = c.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC")
	}
	fmt.Fprintf(b, "- **Generated:** %s\n", generated)

	status := string(c.EnhancementStatus)
	if status == "" {
		status = string(model.EnhancementDisabled)
	}
	if c.FallbackReason != "" {
		status += " (" + c.FallbackReason + ")"
	}
	fmt.Fprintf(b, "- **Analysis:** %s\n", status)

	pct := 0.0
	if c.SourcesAttempted > 0 {
		pct = float64(c.SourcesSucceeded) / float64(c.SourcesAttempted) * 100
	}
	fmt.Fprintf(b, "- **Data completeness:** %d of %d sources (%.0f%%)\n\n", c.SourcesSucceeded, c.SourcesAttempted, pct)
}

// cell escapes a value for a single markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// clone copies c deeply enough that FillPlaceholders cannot touch the
// caller's slices.
func clone(c *model.StructuredContent) *model.StructuredContent {
	out := *c
	out.Profile.Table = append([]model.ProfileRow(nil), c.Profile.Table...)
	out.Profile.Openers = append([]model.Opener(nil), c.Profile.Openers...)
	return &out
}
