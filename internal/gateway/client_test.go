package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"report-generator/internal/config"
	"report-generator/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL + "/api/airtable-proxy")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewClient("/api/airtable-proxy"); err == nil {
		t.Error("NewClient() with a relative URL should fail")
	}
}

func TestListKeepsRemoteOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/airtable-proxy" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("table"); got != "tblUX" {
			t.Errorf("table = %q, want tblUX", got)
		}
		if got := r.URL.Query()["fields[]"]; len(got) != 2 {
			t.Errorf("multi-valued param lost: %v", got)
		}
		_, _ = io.WriteString(w, `{"records":[{"id":"recB","fields":{}},{"id":"recA","fields":{}},{"id":"recC","fields":{}}]}`)
	})

	params := url.Values{"fields[]": {"Name", "Category Description"}, "table": {"ignored"}}
	records, err := c.List(context.Background(), "tblUX", params)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"recB", "recA", "recC"}, ids); diff != "" {
		t.Errorf("record order mismatch (-want +got):\n%s", diff)
	}
}

func TestListRemoteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{name: "relay envelope", status: http.StatusNotFound, body: `{"error":"Could not find table","details":{}}`, wantMsg: "Could not find table"},
		{name: "non json body", status: http.StatusBadGateway, body: `upstream down`, wantMsg: "Bad Gateway"},
		{name: "config error", status: http.StatusInternalServerError, body: `{"error":"Missing Airtable configuration"}`, wantMsg: "Missing Airtable configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.List(context.Background(), "tbl", nil)
			remote, ok := IsRemote(err)
			if !ok {
				t.Fatalf("List() error = %v, want *RemoteError", err)
			}
			if remote.Status != tt.status || remote.Message != tt.wantMsg {
				t.Errorf("RemoteError = %+v, want status %d message %q", remote, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestListNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	c, err := NewClient(target)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.List(context.Background(), "tbl", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("List() error = %v, want *NetworkError", err)
	}
}

func TestListAllFollowsOffsets(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Query().Get("offset") {
		case "":
			_, _ = io.WriteString(w, `{"records":[{"id":"rec1"},{"id":"rec2"}],"offset":"itrNext"}`)
		case "itrNext":
			_, _ = io.WriteString(w, `{"records":[{"id":"rec3"}]}`)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := c.ListAll(context.Background(), "tbl", url.Values{"pageSize": {"2"}})
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if calls != 2 || len(records) != 3 || records[2].ID != "rec3" {
		t.Errorf("ListAll() = %d records after %d calls", len(records), calls)
	}
}

func TestListCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxRecords"); got != "100" {
			t.Errorf("maxRecords = %q, want 100", got)
		}
		_, _ = io.WriteString(w, `{"records":[
			{"id":"rec1","fields":{"Name":"Navigation","Category Description":"Menus and links"}},
			{"id":"rec2","fields":{"Name":"Onboarding"}}
		]}`)
	})

	got, err := c.ListCategories(context.Background(), "tblUX", 100, config.CategoryFieldsConfig{Name: "Name", Description: "Category Description"})
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}

	want := []models.CategoryOption{
		{ID: "rec1", Name: "Navigation", Description: "Menus and links"},
		{ID: "rec2", Name: "Onboarding"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListCategories() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get(IdempotencyHeader); got != "key-1" {
			t.Errorf("Idempotency-Key = %q, want key-1", got)
		}
		var body models.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Records) != 1 || body.Records[0].Fields["fldTitle"] != "Weekly" {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = io.WriteString(w, `{"records":[{"id":"recNew","fields":{}}]}`)
	})

	id, err := c.Create(context.Background(), "tblReports", map[string]interface{}{"fldTitle": "Weekly"}, WithIdempotencyKey("key-1"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "recNew" {
		t.Errorf("Create() = %q, want recNew", id)
	}
}

func TestCreateEmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"records":[]}`)
	})

	_, err := c.Create(context.Background(), "tbl", map[string]interface{}{})
	if !errors.Is(err, ErrEmptyCreateResponse) {
		t.Errorf("Create() error = %v, want ErrEmptyCreateResponse", err)
	}
}
