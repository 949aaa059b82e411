package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/pkg/jina"
	"github.com/sells-group/prospect-research/pkg/perplexity"
)

const linkedInPrompt = `Find the LinkedIn company profile for "%s"%s.
Return the profile as plain text with one field per line, using exactly these labels:
Description:
Industry:
Company size:
Headquarters:
Founded:
Specialties:
Type:
Then list up to five key people, one per line, as "- Name - Title".
Leave a label empty if it cannot be determined.`

// LinkedInAdapter reads the LinkedIn company page through Jina Reader and
// falls back to a Perplexity lookup when the page is behind the login wall.
type LinkedInAdapter struct {
	reader jina.Client
	pplx   perplexity.Client
}

// NewLinkedInAdapter creates a LinkedInAdapter. Either client may be nil.
func NewLinkedInAdapter(reader jina.Client, pplx perplexity.Client) *LinkedInAdapter {
	return &LinkedInAdapter{reader: reader, pplx: pplx}
}

func (a *LinkedInAdapter) Name() model.SourceName { return model.SourceLinkedIn }

func (a *LinkedInAdapter) Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult {
	return run(ctx, a.Name(), func(ctx context.Context) (model.Payload, error) {
		log := zap.L().With(zap.String("company", q.DisplayName()), zap.String("source", "linkedin"))
		profileURL := buildLinkedInURL(q.DisplayName())

		var raw string
		var lastErr error
		if a.reader != nil {
			resp, err := a.reader.Read(ctx, profileURL)
			switch {
			case err != nil:
				lastErr = err
				log.Debug("linkedin: reader failed, falling back to perplexity", zap.Error(err))
			case isLinkedInLoginWall(resp.Data.Content):
				log.Debug("linkedin: reader returned login wall, falling back to perplexity")
			default:
				raw = resp.Data.Content
			}
		}

		if raw == "" && a.pplx != nil {
			hint := ""
			if q.Domain != "" {
				hint = " (" + q.Domain + ")"
			}
			temp := 0.1
			resp, err := a.pplx.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
				Messages: []perplexity.Message{
					{Role: "user", Content: fmt.Sprintf(linkedInPrompt, q.DisplayName(), hint)},
				},
				Temperature: &temp,
			})
			if err != nil {
				return nil, err
			}
			raw = resp.Text()
		}

		if strings.TrimSpace(raw) == "" {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ErrNoData
		}

		p := parseLinkedIn(raw)
		p.URL = profileURL
		if p.Description == "" && p.Industry == "" && p.EmployeeCount == "" {
			return nil, ErrNoData
		}
		return p, nil
	})
}

// buildLinkedInURL constructs a LinkedIn company page URL from the company name.
func buildLinkedInURL(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, "&", "and")
	slug = nonSlug.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	for _, suffix := range []string{"-pty-ltd", "-pty", "-ltd", "-limited", "-llc", "-inc", "-corp", "-co"} {
		slug = strings.TrimSuffix(slug, suffix)
	}
	return "https://www.linkedin.com/company/" + strings.Trim(slug, "-")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// isLinkedInLoginWall detects if the Reader returned a LinkedIn login wall
// instead of content.
func isLinkedInLoginWall(content string) bool {
	if len(strings.TrimSpace(content)) < 100 {
		return true
	}
	lower := strings.ToLower(content)
	for _, indicator := range []string{
		"authwall",
		"login_required",
		"please log in",
		"sign up to view",
		"join linkedin",
		"sign in to see",
	} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

var (
	labelLine  = regexp.MustCompile(`^[-*#\s]*\**([A-Za-z ]{3,20}?)\**\s*:\**\s*(.*)$`)
	personLine = regexp.MustCompile(`^[-*•]\s*([A-Z][\p{L}'.-]+(?:\s+[A-Z][\p{L}'.-]+){1,3})\s+[-–|,]\s+(.{2,80})$`)
)

var linkedInLabels = map[string]string{
	"description":    "description",
	"about":          "description",
	"overview":       "description",
	"about us":       "description",
	"industry":       "industry",
	"company size":   "size",
	"employees":      "size",
	"employee count": "size",
	"size":           "size",
	"headquarters":   "hq",
	"location":       "hq",
	"founded":        "founded",
	"specialties":    "specialties",
	"type":           "type",
	"company type":   "type",
}

// parseLinkedIn extracts labelled fields from LinkedIn page text. Lines
// that carry no label and are long enough become the description when no
// explicit one is found.
func parseLinkedIn(raw string) *model.LinkedInPayload {
	p := &model.LinkedInPayload{}
	var prose []string
	var pending string

	set := func(field, val string) {
		val = strings.TrimSpace(strings.Trim(val, "*"))
		if val == "" {
			return
		}
		switch field {
		case "description":
			if p.Description == "" {
				p.Description = val
			}
		case "industry":
			setIfEmpty(&p.Industry, val)
		case "size":
			setIfEmpty(&p.EmployeeCount, strings.TrimSuffix(val, " employees"))
		case "hq":
			setIfEmpty(&p.Headquarters, val)
		case "founded":
			setIfEmpty(&p.Founded, val)
		case "specialties":
			setIfEmpty(&p.Specialties, val)
		case "type":
			setIfEmpty(&p.CompanyType, val)
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := personLine.FindStringSubmatch(line); m != nil && looksLikeRole(m[2]) {
			p.People = append(p.People, model.Person{Name: m[1], Title: strings.TrimSpace(m[2])})
			pending = ""
			continue
		}
		if m := labelLine.FindStringSubmatch(line); m != nil {
			if field, ok := linkedInLabels[strings.ToLower(strings.TrimSpace(m[1]))]; ok {
				if strings.TrimSpace(m[2]) == "" {
					pending = field
				} else {
					set(field, m[2])
					pending = ""
				}
				continue
			}
		}
		// Markdown headings such as "## Industry" put the value on the next line.
		if strings.HasPrefix(line, "#") {
			if field, ok := linkedInLabels[strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "# ")))]; ok {
				pending = field
				continue
			}
		}
		if pending != "" {
			set(pending, line)
			pending = ""
			continue
		}
		if len(line) >= 80 && !strings.HasPrefix(line, "[") {
			prose = append(prose, line)
		}
	}

	if p.Description == "" && len(prose) > 0 {
		p.Description = prose[0]
	}
	if len(p.People) > 5 {
		p.People = p.People[:5]
	}
	return p
}

var roleWords = []string{
	"ceo", "cfo", "cto", "coo", "cmo", "cio", "chief", "founder", "director", "manager",
	"head", "officer", "president", "partner", "owner", "vp", "vice", "lead", "principal", "chair",
}

func looksLikeRole(title string) bool {
	lower := strings.ToLower(title)
	for _, w := range roleWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func setIfEmpty(dst *string, val string) {
	if *dst == "" {
		*dst = val
	}
}
