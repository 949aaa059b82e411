package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-research/internal/model"
)

const (
	maxPayloadChars  = 4000
	maxResearchChars = 8000
)

// ErrInvalidOutput means the model answered but not in the required shape.
var ErrInvalidOutput = eris.New("analysis: invalid model output")

const systemPrompt = `You are a B2B sales research analyst. You write factual, concise prospect research for account executives.
Only use facts present in the supplied source data. When a fact is unknown, write "Unknown" rather than guessing.
Respond with a single JSON object and nothing else.`

const researchSchema = `{
  "company_background": "2-4 sentence overview of what the company does, where, and at what scale",
  "recent_developments": "bulleted list (one '- ' line each) of recent news or changes",
  "technology_signals": "bulleted list of technologies or platforms the company appears to use",
  "decision_makers": "bulleted list of likely decision makers as '- Name, Title'",
  "pain_points": "bulleted list of likely business pain points, each tied to evidence"
}`

const profileSchema = `{
  "table": {%s},
  "openers": [{"topic": "short topic", "message": "one or two sentence opener", "relevance": 0-100}],
  "strategy": "numbered outreach plan, one step per line"
}`

// buildPrompt embeds the bundle and the target schema for kind.
func buildPrompt(b *model.AggregateBundle, kind model.DocumentKind, researchText string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\n", companyName(b))
	if b.Query.Domain != "" {
		fmt.Fprintf(&sb, "Domain: %s\n", b.Query.Domain)
	}
	fmt.Fprintf(&sb, "Sources collected: %d of %d\n\n", b.Succeeded, b.Attempted)

	for _, src := range b.SucceededSources() {
		raw, err := json.Marshal(b.Results[src].Payload)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "## Source: %s\n%s\n\n", src, truncateRunes(string(raw), maxPayloadChars))
	}
	if len(b.Errors) > 0 {
		sb.WriteString("## Unavailable sources\n")
		for _, e := range b.Errors {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Source, e.Error)
		}
		sb.WriteString("\n")
	}

	switch kind {
	case model.DocumentProfile:
		if researchText != "" {
			fmt.Fprintf(&sb, "## Existing research report\n%s\n\n", truncateRunes(researchText, maxResearchChars))
		}
		fields := make([]string, len(model.ProfileTableFields))
		for i, f := range model.ProfileTableFields {
			fields[i] = fmt.Sprintf("%q: \"value\"", f)
		}
		sb.WriteString("Produce a prospect profile and outreach strategy. Give three to five openers ranked by relevance.\n")
		fmt.Fprintf(&sb, "Return JSON matching this schema:\n"+profileSchema+"\n", strings.Join(fields, ", "))
	default:
		sb.WriteString("Produce a research report.\n")
		sb.WriteString("Return JSON matching this schema:\n" + researchSchema + "\n")
	}
	return sb.String()
}

type aiOpener struct {
	Topic     string  `json:"topic"`
	Message   string  `json:"message"`
	Relevance float64 `json:"relevance"`
}

type aiProfile struct {
	Table    map[string]string `json:"table"`
	Openers  []aiOpener        `json:"openers"`
	Strategy string            `json:"strategy"`
}

// parseResearch decodes a research answer. Every field must be present.
func parseResearch(text string) (model.ResearchFields, error) {
	var out model.ResearchFields
	if err := decodeJSONObject(text, &out); err != nil {
		return out, err
	}
	c := model.StructuredContent{Kind: model.DocumentResearch, Company: "-", Research: out}
	if missing := c.Missing(); len(missing) > 0 {
		return out, eris.Wrapf(ErrInvalidOutput, "missing %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// parseProfile decodes a profile answer into canonical table order with
// openers ranked and relevance on the 0-100 scale.
func parseProfile(text string) (model.ProfileFields, error) {
	var in aiProfile
	if err := decodeJSONObject(text, &in); err != nil {
		return model.ProfileFields{}, err
	}

	out := model.ProfileFields{Strategy: strings.TrimSpace(in.Strategy)}
	for _, f := range model.ProfileTableFields {
		out.Table = append(out.Table, model.ProfileRow{Field: f, Value: strings.TrimSpace(in.Table[f])})
	}
	for _, o := range in.Openers {
		out.Openers = append(out.Openers, model.Opener{
			Topic:     strings.TrimSpace(o.Topic),
			Message:   strings.TrimSpace(o.Message),
			Relevance: normalizeRelevance(o.Relevance),
		})
	}
	model.SortOpeners(out.Openers)
	if len(out.Openers) > maxOpeners {
		out.Openers = out.Openers[:maxOpeners]
	}

	c := model.StructuredContent{Kind: model.DocumentProfile, Company: "-", Profile: out}
	if missing := c.Missing(); len(missing) > 0 {
		return out, eris.Wrapf(ErrInvalidOutput, "missing %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// normalizeRelevance maps a 0-1 fraction or 0-100 score onto 0-100.
func normalizeRelevance(v float64) int {
	if v > 0 && v < 1 {
		v *= 100
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// decodeJSONObject reads the outermost JSON object in text, ignoring code
// fences or prose around it.
func decodeJSONObject(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return eris.Wrap(ErrInvalidOutput, "no JSON object in response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return eris.Wrapf(ErrInvalidOutput, "decode response: %v", err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
