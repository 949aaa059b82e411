// Package llm sends single-prompt completions to the configured provider
// with a deadline, one bounded retry and classified errors.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-research/internal/config"
	"github.com/sells-group/prospect-research/internal/resilience"
)

// Error classes. Every error returned by Complete matches exactly one of
// them under errors.Is.
var (
	ErrTimeout       = eris.New("llm: timed out")
	ErrConfiguration = eris.New("llm: configuration error")
	ErrProvider      = eris.New("llm: provider error")
)

// Error pairs an error class with the underlying cause.
type Error struct {
	Class error
	Err   error
}

func (e *Error) Error() string { return e.Class.Error() + ": " + e.Err.Error() }

func (e *Error) Unwrap() []error { return []error{e.Class, e.Err} }

// Options tune one completion. Zero values fall back to the client defaults.
type Options struct {
	System      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Provider performs one completion request against a vendor API. Errors
// should expose the HTTP status through HTTPStatus() when there is one.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model, prompt string, opts Options) (string, error)
}

// Client is a provider plus model, defaults and retry policy.
type Client struct {
	provider Provider
	model    string
	defaults Options
	retry    resilience.RetryConfig
}

// New creates a Client. A nil provider yields a client whose every call
// fails with ErrConfiguration.
func New(p Provider, model string, defaults Options, maxAttempts int) *Client {
	if maxAttempts < 1 || maxAttempts > 2 {
		maxAttempts = 2
	}
	if defaults.Timeout <= 0 {
		defaults.Timeout = 60 * time.Second
	}
	if defaults.MaxTokens <= 0 {
		defaults.MaxTokens = 4096
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = maxAttempts
	retry.InitialBackoff = time.Second
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, context.DeadlineExceeded) && resilience.IsTransient(err)
	}
	return &Client{provider: p, model: model, defaults: defaults, retry: retry}
}

// NewFromConfig builds the client for cfg.LLM. The provider is left unset
// when its API key is missing; Configured reports that case.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	var p Provider
	key := cfg.LLMKey()
	switch cfg.LLM.Provider {
	case "anthropic", "":
		if key != "" {
			p = NewAnthropicProvider(key, cfg.Anthropic.BaseURL)
		}
	case "openai":
		if key != "" {
			p = NewOpenAIProvider(key, cfg.OpenAI.BaseURL)
		}
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
	return New(p, cfg.LLM.Model, Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout(),
	}, cfg.LLM.MaxAttempts), nil
}

// Configured reports whether the client has credentials to call a provider.
func (c *Client) Configured() bool {
	return c != nil && c.provider != nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends prompt and returns the model's text. The timeout bounds
// all attempts together.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if !c.Configured() {
		return "", &Error{Class: ErrConfiguration, Err: eris.New("llm: no credentials configured")}
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = c.defaults.Timeout
	}

	log := zap.L().With(zap.String("provider", c.provider.Name()), zap.String("model", c.model))
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("llm", c.provider.Name())

	start := time.Now()
	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		out, err := c.provider.Complete(ctx, c.model, prompt, opts)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", eris.New("llm: empty completion")
		}
		return out, nil
	})
	if err != nil {
		err = classify(ctx, err)
		log.Warn("llm: completion failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	log.Debug("llm: completion done", zap.Duration("elapsed", time.Since(start)), zap.Int("chars", len(text)))
	return text, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Class: ErrTimeout, Err: err}
	}
	code := resilience.StatusOf(err)
	if resilience.IsAuthStatus(code) || code == http.StatusNotFound {
		return &Error{Class: ErrConfiguration, Err: err}
	}
	if code == http.StatusBadRequest && strings.Contains(strings.ToLower(err.Error()), "model") {
		return &Error{Class: ErrConfiguration, Err: err}
	}
	return &Error{Class: ErrProvider, Err: err}
}

// statusError attaches an HTTP status to a vendor error that does not
// expose one itself.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) HTTPStatus() int { return e.code }

func withStatus(err error, code int) error {
	if err == nil || code == 0 {
		return err
	}
	return &statusError{code: code, err: err}
}
