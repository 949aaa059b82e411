package analysis

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the fixed keyword list behind the rule-based heuristics.
type Catalog struct {
	Technologies []TechCategory `yaml:"technologies"`
	Openers      []OpenerTopic  `yaml:"openers"`
}

// TechCategory groups technology keywords.
type TechCategory struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`

	patterns []*regexp.Regexp
}

// OpenerTopic is a conversation-opener template and the keywords that make
// it relevant.
type OpenerTopic struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
	Message  string   `yaml:"message"`

	patterns []*regexp.Regexp
}

// LoadCatalog parses a YAML catalog and compiles its keyword matchers.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "analysis: parse catalog")
	}
	if len(c.Technologies) == 0 || len(c.Openers) == 0 {
		return nil, eris.New("analysis: catalog needs technologies and openers")
	}
	for i := range c.Technologies {
		c.Technologies[i].patterns = compileKeywords(c.Technologies[i].Keywords)
	}
	for i := range c.Openers {
		if c.Openers[i].Topic == "" || c.Openers[i].Message == "" {
			return nil, eris.Errorf("analysis: opener %d needs topic and message", i)
		}
		c.Openers[i].patterns = compileKeywords(c.Openers[i].Keywords)
	}
	return &c, nil
}

var defaultCatalog = mustLoadCatalog(catalogYAML)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

func compileKeywords(kws []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(kws))
	for i, kw := range kws {
		out[i] = regexp.MustCompile(`(?i)(^|[^\pL\pN])` + regexp.QuoteMeta(strings.TrimSpace(kw)) + `($|[^\pL\pN])`)
	}
	return out
}

// matches returns the keywords found in text, in catalog order.
func matches(kws []string, patterns []*regexp.Regexp, text string) []string {
	var found []string
	for i, re := range patterns {
		if re.MatchString(text) {
			found = append(found, kws[i])
		}
	}
	return found
}

// Signal is one technology category detected in the collected text.
type Signal struct {
	Category string
	Keywords []string
}

// DetectTechnologies runs the presence test for every technology keyword.
func (c *Catalog) DetectTechnologies(text string) []Signal {
	var out []Signal
	for _, t := range c.Technologies {
		if found := matches(t.Keywords, t.patterns, text); len(found) > 0 {
			out = append(out, Signal{Category: t.Category, Keywords: found})
		}
	}
	return out
}
