// Package source wraps each external data capability as an Adapter that
// always yields a RawSourceResult, and fans them out concurrently through
// the Orchestrator.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/model"
	"github.com/sells-group/prospect-research/internal/resilience"
)

// Adapter fetches one kind of company data. Fetch never returns an error:
// every failure is reported inside the result.
type Adapter interface {
	Name() model.SourceName
	Fetch(ctx context.Context, q model.CompanyQuery) model.RawSourceResult
}

var (
	// ErrNoData means the backend answered but had nothing for the company.
	ErrNoData = eris.New("no data found")
	// ErrNoDomain means the adapter needs a domain and the query has none.
	ErrNoDomain = eris.New("company domain unknown")
)

// run times fn and converts its outcome into a RawSourceResult.
func run(ctx context.Context, src model.SourceName, fn func(ctx context.Context) (model.Payload, error)) model.RawSourceResult {
	start := time.Now()
	p, err := fn(ctx)
	d := time.Since(start)

	if err == nil && p == nil {
		err = ErrNoData
	}
	if err != nil {
		zap.L().Debug("source: fetch failed",
			zap.String("source", string(src)),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		return model.Failed(src, Describe(err), start.UTC(), d)
	}
	return model.Succeeded(p, start.UTC(), d)
}

// Describe turns an adapter error into a short human-readable reason.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "backend temporarily disabled after repeated failures"
	case errors.Is(err, ErrNoData):
		return ErrNoData.Error()
	case errors.Is(err, ErrNoDomain):
		return ErrNoDomain.Error()
	}

	switch code := resilience.StatusOf(err); {
	case resilience.IsAuthStatus(code):
		return fmt.Sprintf("authentication failed (HTTP %d)", code)
	case code == http.StatusNotFound:
		return "not found (HTTP 404)"
	case code == http.StatusTooManyRequests:
		return "rate limited (HTTP 429)"
	case code >= 500:
		return fmt.Sprintf("upstream error (HTTP %d)", code)
	case code > 0:
		return fmt.Sprintf("request rejected (HTTP %d)", code)
	}

	if msg := err.Error(); containsAny(strings.ToLower(msg), "unmarshal", "decode", "invalid character") {
		return "malformed response: " + msg
	}
	return err.Error()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
