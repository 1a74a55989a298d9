package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"report-generator/internal/config"
)

func newTestUpstream(t *testing.T, handler http.HandlerFunc) *UpstreamService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewUpstreamService(config.AirtableConfig{
		APIKey:    "pat_secret",
		BaseID:    "appBase",
		APIURL:    srv.URL + "/v0/",
		RateLimit: 100,
		RateBurst: 10,
	}, srv.Client())
}

func TestForwardGet(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	up := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"records":[]}`))
	})

	resp, err := up.Forward(context.Background(), UpstreamRequest{
		Method: http.MethodGet,
		Table:  "tblUX",
		Query:  url.Values{"fields[]": {"Name", "Category Description"}, "maxRecords": {"100"}},
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != `{"records":[]}` {
		t.Errorf("response = %d %s", resp.Status, resp.Body)
	}
	if gotPath != "/v0/appBase/tblUX" {
		t.Errorf("path = %q", gotPath)
	}
	values, _ := url.ParseQuery(gotQuery)
	if len(values["fields[]"]) != 2 || values.Get("maxRecords") != "100" {
		t.Errorf("query = %q, want multi-valued params preserved", gotQuery)
	}
	if gotAuth != "Bearer pat_secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestForwardPostSendsBodyNotQuery(t *testing.T) {
	var gotBody, gotQuery string
	up := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"records":[{"id":"recNew"}]}`))
	})

	_, err := up.Forward(context.Background(), UpstreamRequest{
		Method: http.MethodPost,
		Table:  "tblReports",
		Query:  url.Values{"ignored": {"1"}},
		Body:   []byte(`{"records":[{"fields":{}}]}`),
	})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if gotBody != `{"records":[{"fields":{}}]}` {
		t.Errorf("body = %q", gotBody)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want none for POST", gotQuery)
	}
}

func TestForwardPassesRemoteErrors(t *testing.T) {
	up := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"type":"INVALID_VALUE","message":"bad field"}}`))
	})

	resp, err := up.Forward(context.Background(), UpstreamRequest{Method: http.MethodGet, Table: "tbl"})
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if resp.OK() || resp.Status != http.StatusUnprocessableEntity {
		t.Errorf("Status = %d", resp.Status)
	}
}

func TestForwardRejectsNonJSON(t *testing.T) {
	up := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := up.Forward(context.Background(), UpstreamRequest{Method: http.MethodGet, Table: "tbl"})
	if !errors.Is(err, ErrInvalidUpstreamBody) {
		t.Errorf("Forward() error = %v, want ErrInvalidUpstreamBody", err)
	}
}

func TestForwardCancelledContext(t *testing.T) {
	up := newTestUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := up.Forward(ctx, UpstreamRequest{Method: http.MethodGet, Table: "tbl"}); err == nil {
		t.Error("Forward() with a cancelled context should fail")
	}
}

func TestForwardRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	up := NewUpstreamService(config.AirtableConfig{
		APIKey:    "k",
		BaseID:    "b",
		APIURL:    srv.URL,
		RateLimit: 0.1,
		RateBurst: 1,
	}, srv.Client())

	if _, err := up.Forward(context.Background(), UpstreamRequest{Method: http.MethodGet, Table: "tbl"}); err != nil {
		t.Fatalf("first Forward() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := up.Forward(ctx, UpstreamRequest{Method: http.MethodGet, Table: "tbl"}); err == nil {
		t.Error("second Forward() should wait past the deadline and fail")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1", got)
	}
}

func TestConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AirtableConfig
		want bool
	}{
		{"both set", config.AirtableConfig{APIKey: "k", BaseID: "b"}, true},
		{"missing key", config.AirtableConfig{BaseID: "b"}, false},
		{"missing base", config.AirtableConfig{APIKey: "k"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewUpstreamService(tt.cfg, nil).Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}
