package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"report-generator/internal/config"
)

// ErrInvalidUpstreamBody is returned when the remote API answers with a body
// that is not JSON
var ErrInvalidUpstreamBody = errors.New("upstream response is not valid JSON")

// UpstreamRequest is one request relayed to the remote API
type UpstreamRequest struct {
	Method string
	Table  string
	Query  url.Values
	Body   []byte
}

// UpstreamResponse is the remote answer, passed back unchanged
type UpstreamResponse struct {
	Status int
	Body   []byte
}

// OK reports whether the remote status is 2xx
func (r *UpstreamResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// UpstreamService forwards requests to Airtable with the server-held
// credential. Calls share one rate limiter per process.
type UpstreamService struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	apiURL      string
	baseID      string
	apiKey      string
}

// NewUpstreamService creates the forwarder. A nil httpClient uses
// http.DefaultClient.
func NewUpstreamService(cfg config.AirtableConfig, httpClient *http.Client) *UpstreamService {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &UpstreamService{
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(limit, burst),
		apiURL:      strings.TrimSuffix(cfg.APIURL, "/"),
		baseID:      cfg.BaseID,
		apiKey:      cfg.APIKey,
	}
}

// Configured reports whether the credential and base are present
func (s *UpstreamService) Configured() bool {
	return s.apiKey != "" && s.baseID != ""
}

func (s *UpstreamService) tableURL(req UpstreamRequest) string {
	target := fmt.Sprintf("%s/%s/%s", s.apiURL, url.PathEscape(s.baseID), url.PathEscape(req.Table))
	if req.Method == http.MethodGet && len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	return target
}

// Forward relays one request. Query parameters are only sent with GET; the
// body only with other methods. Any remote status is returned as a response,
// not an error.
func (s *UpstreamService) Forward(ctx context.Context, req UpstreamRequest) (*UpstreamResponse, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body io.Reader
	if req.Method != http.MethodGet && len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, s.tableURL(req), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w (status %d)", ErrInvalidUpstreamBody, resp.StatusCode)
	}

	return &UpstreamResponse{Status: resp.StatusCode, Body: data}, nil
}
