package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"report-generator/internal/config"
	"report-generator/internal/models"
)

// IdempotencyHeader carries the client's deduplication key to the relay
const IdempotencyHeader = "Idempotency-Key"

// TableParam is the relay query parameter naming the target table
const TableParam = "table"

// Client talks to the remote API through the credential-hiding relay. It
// never sees the credential and configures no timeout of its own; callers
// bound calls with their context.
type Client struct {
	proxyURL   *url.URL
	httpClient *http.Client
	headers    map[string]string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (for tests/stubs)
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// NewClient creates a client for the relay at proxyURL
func NewClient(proxyURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy URL %q must be absolute", proxyURL)
	}

	c := &Client{
		proxyURL:   u,
		httpClient: &http.Client{},
		headers:    map[string]string{"Content-Type": "application/json"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// tableURL builds the relay URL for a table plus extra query parameters
func (c *Client) tableURL(tableID string, params url.Values) string {
	u := *c.proxyURL
	q := u.Query()
	q.Set(TableParam, tableID)
	for key, values := range params {
		if key == TableParam {
			continue
		}
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteError(resp.StatusCode, data)
	}
	return data, nil
}

func remoteError(status int, body []byte) *RemoteError {
	msg := http.StatusText(status)
	var envelope models.ErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		msg = envelope.Error
	}
	return &RemoteError{Status: status, Message: msg}
}

// ListPage fetches one page of records and the offset of the next page
func (c *Client) ListPage(ctx context.Context, tableID string, params url.Values) (*models.ListResponse, error) {
	data, err := c.do(ctx, "list "+tableID, http.MethodGet, c.tableURL(tableID, params), nil, nil)
	if err != nil {
		return nil, err
	}

	var page models.ListResponse
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("list %s: decode response: %w", tableID, err)
	}
	return &page, nil
}

// List returns the records of one call in the order the remote returned them
func (c *Client) List(ctx context.Context, tableID string, params url.Values) ([]models.Record, error) {
	page, err := c.ListPage(ctx, tableID, params)
	if err != nil {
		return nil, err
	}
	if page.Records == nil {
		return []models.Record{}, nil
	}
	return page.Records, nil
}

// ListAll follows offset pagination and concatenates pages in order
func (c *Client) ListAll(ctx context.Context, tableID string, params url.Values) ([]models.Record, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}

	records := []models.Record{}
	for {
		page, err := c.ListPage(ctx, tableID, query)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if page.Offset == "" {
			return records, nil
		}
		query.Set("offset", page.Offset)
	}
}

// ListCategories fetches up to limit category records and maps them to options
func (c *Client) ListCategories(ctx context.Context, tableID string, limit int, fields config.CategoryFieldsConfig) ([]models.CategoryOption, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("maxRecords", strconv.Itoa(limit))
	}

	records, err := c.List(ctx, tableID, params)
	if err != nil {
		return nil, err
	}

	options := make([]models.CategoryOption, 0, len(records))
	for _, r := range records {
		options = append(options, models.CategoryOption{
			ID:          r.ID,
			Name:        r.StringField(fields.Name),
			Description: r.StringField(fields.Description),
		})
	}
	return options, nil
}

// CreateOption configures a single create call
type CreateOption func(map[string]string)

// WithIdempotencyKey lets the relay deduplicate repeated submissions
func WithIdempotencyKey(key string) CreateOption {
	return func(h map[string]string) {
		if key != "" {
			h[IdempotencyHeader] = key
		}
	}
}

// Create writes one record and returns its identifier
func (c *Client) Create(ctx context.Context, tableID string, fields map[string]interface{}, opts ...CreateOption) (string, error) {
	payload := models.CreateRequest{Records: []models.RecordFields{{Fields: fields}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("create %s: marshal body: %w", tableID, err)
	}

	headers := map[string]string{}
	for _, opt := range opts {
		opt(headers)
	}

	data, err := c.do(ctx, "create "+tableID, http.MethodPost, c.tableURL(tableID, nil), bytes.NewReader(body), headers)
	if err != nil {
		return "", err
	}

	var created models.CreateResponse
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("create %s: decode response: %w", tableID, err)
	}
	if len(created.Records) == 0 || created.Records[0].ID == "" {
		return "", ErrEmptyCreateResponse
	}
	return created.Records[0].ID, nil
}
