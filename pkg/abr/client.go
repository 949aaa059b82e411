// Package abr is a client for the Australian Business Register ABN Lookup
// JSON web services.
package abr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://abr.business.gov.au/json"
	jsonpCallback   = "callback"
	defaultMaxNames = 10
)

// Client looks up businesses on the register.
type Client interface {
	// MatchingNames searches entity and business names, best match first.
	MatchingNames(ctx context.Context, name string) ([]Name, error)
	// Details fetches the full record for an ABN.
	Details(ctx context.Context, abn string) (*Details, error)
}

// Name is one MatchingNames hit.
type Name struct {
	Abn       string `json:"Abn"`
	AbnStatus string `json:"AbnStatus"`
	IsCurrent bool   `json:"IsCurrent"`
	Name      string `json:"Name"`
	NameType  string `json:"NameType"`
	Postcode  string `json:"Postcode"`
	Score     int    `json:"Score"`
	State     string `json:"State"`
}

// Details is the AbnDetails record.
type Details struct {
	Abn                    string   `json:"Abn"`
	AbnStatus              string   `json:"AbnStatus"`
	AbnStatusEffectiveFrom string   `json:"AbnStatusEffectiveFrom"`
	Acn                    string   `json:"Acn"`
	AddressPostcode        string   `json:"AddressPostcode"`
	AddressState           string   `json:"AddressState"`
	BusinessName           []string `json:"BusinessName"`
	EntityName             string   `json:"EntityName"`
	EntityTypeCode         string   `json:"EntityTypeCode"`
	EntityTypeName         string   `json:"EntityTypeName"`
	Gst                    string   `json:"Gst"`
	Message                string   `json:"Message"`
}

type namesEnvelope struct {
	Message string `json:"Message"`
	Names   []Name `json:"Names"`
}

// APIError is returned for non-200 responses and service-level errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("abr: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return "abr: " + e.Message
}

// HTTPStatus exposes the response status for retry and error classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the service base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithMaxResults bounds the MatchingNames result count.
func WithMaxResults(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

type httpClient struct {
	guid       string
	baseURL    string
	maxResults int
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an ABN Lookup client. guid is the registered
// authentication GUID.
func NewClient(guid string, opts ...Option) Client {
	c := &httpClient{
		guid:       guid,
		baseURL:    defaultBaseURL,
		maxResults: defaultMaxNames,
		http:       &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) MatchingNames(ctx context.Context, name string) ([]Name, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("maxResults", strconv.Itoa(c.maxResults))

	var env namesEnvelope
	if err := c.get(ctx, "/MatchingNames.aspx", q, &env); err != nil {
		return nil, eris.Wrap(err, "abr: matching names")
	}
	if env.Message != "" {
		return nil, &APIError{Message: env.Message}
	}
	return env.Names, nil
}

func (c *httpClient) Details(ctx context.Context, abn string) (*Details, error) {
	q := url.Values{}
	q.Set("abn", strings.ReplaceAll(abn, " ", ""))

	var d Details
	if err := c.get(ctx, "/AbnDetails.aspx", q, &d); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("abr: details %s", abn))
	}
	if d.Message != "" {
		return nil, &APIError{Message: d.Message}
	}
	return &d, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	q.Set("guid", c.guid)
	q.Set("callback", jsonpCallback)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	payload, err := unwrapJSONP(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

// unwrapJSONP strips a "callback(...)" wrapper. Bare JSON passes through.
func unwrapJSONP(body []byte) ([]byte, error) {
	s := strings.TrimSpace(string(body))
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return []byte(s), nil
	}
	open := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if open < 0 || end <= open {
		return nil, eris.Errorf("abr: malformed JSONP response: %.80s", s)
	}
	return []byte(s[open+1 : end]), nil
}
