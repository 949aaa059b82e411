package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/resilience"
	"github.com/sells-group/prospect-research/pkg/jina"
)

// ErrNeedsFallback marks a Reader response that came back but is unusable.
var ErrNeedsFallback = eris.New("jina: response needs fallback")

// JinaAdapter wraps a Jina Reader client as a Scraper behind a circuit
// breaker so a failing Reader is skipped until its reset timeout passes.
type JinaAdapter struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaAdapter creates a JinaAdapter. The breaker config's OnStateChange
// is replaced with a logger.
func NewJinaAdapter(client jina.Client, cfg resilience.CircuitBreakerConfig) *JinaAdapter {
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("scrape: jina circuit breaker state change",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
	return &JinaAdapter{
		client:  client,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

// Name implements Scraper.
func (j *JinaAdapter) Name() string { return "jina" }

// State exposes the breaker state.
func (j *JinaAdapter) State() resilience.CircuitState { return j.breaker.State() }

// Scrape fetches a URL via Jina Reader and validates the response.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if needsFallback(resp) {
			return nil, ErrNeedsFallback
		}
		return &Result{
			URL:         firstNonEmpty(resp.Data.URL, targetURL),
			Title:       resp.Data.Title,
			Description: resp.Data.Description,
			Markdown:    resp.Data.Content,
			Source:      "jina",
		}, nil
	})
}

// needsFallback checks whether a Jina response contains usable content
// or indicates the page is blocked/empty.
func needsFallback(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}

	if resp.Code != 0 && resp.Code != 200 {
		return true
	}

	content := strings.TrimSpace(resp.Data.Content)

	if len(content) < 100 {
		return true
	}

	lower := strings.ToLower(content)

	challengeSignatures := []string{
		"checking your browser",
		"enable javascript",
		"please enable cookies",
		"access denied",
		"403 forbidden",
		"just a moment",
		"cloudflare",
		"attention required",
	}

	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}

	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
