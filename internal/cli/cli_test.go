package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"

	"report-generator/internal/config"
	"report-generator/internal/form"
	"report-generator/internal/gateway"
	"report-generator/internal/models"
)

func testContext(t *testing.T, handler http.HandlerFunc) (*Context, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	return &Context{
		Config: config.Config{
			Airtable: config.AirtableConfig{
				ProxyURL: srv.URL + "/api/airtable-proxy",
				Tables: config.TablesConfig{
					Reports:           "tblReports",
					UXCategories:      "tblUX",
					AcademyCategories: "tblAcademy",
				},
				CategoryFields: config.CategoryFieldsConfig{Name: "Name", Description: "Category Description"},
			},
			Form: config.FormConfig{
				DataSources:    []string{models.DataSourceBeamKnowledge, models.DataSourceUXIssues},
				Templates:      []string{"Executive Summary"},
				OutputFormats:  []string{"PDF Report"},
				TitleMinLength: 3,
				TitleMaxLength: 100,
				CategoryLimit:  100,
			},
		},
		Out: out,
	}, out
}

func categoriesHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("table") != "tblUX" {
			t.Errorf("table = %q, want tblUX", r.URL.Query().Get("table"))
		}
		json.NewEncoder(w).Encode(models.ListResponse{Records: []models.Record{
			{ID: "rec1", Fields: map[string]interface{}{"Name": "Navigation", "Category Description": "Menus"}},
			{ID: "rec2", Fields: map[string]interface{}{"Name": "Checkout", "Category Description": "<i>Payment</i> flow"}},
		}})
	}
}

func TestCategoriesCmdList(t *testing.T) {
	ctx, out := testContext(t, categoriesHandler(t))

	cmd := &CategoriesCmd{Domain: "ux"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{"Navigation", "Checkout", "Payment flow", "2 of 2 categories"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "<i>") {
		t.Error("markup must be stripped from descriptions")
	}
}

func TestCategoriesCmdSearchJSON(t *testing.T) {
	ctx, out := testContext(t, categoriesHandler(t))

	cmd := &CategoriesCmd{Domain: "ux", Search: "PAYMENT", JSON: true}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var got []models.CategoryOption
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	want := []models.CategoryOption{{ID: "rec2", Name: "Checkout", Description: "Payment flow"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestCategoriesCmdNoMatch(t *testing.T) {
	ctx, out := testContext(t, categoriesHandler(t))

	cmd := &CategoriesCmd{Domain: "ux", Search: "zzz"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "No categories found.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCategoriesCmdRemoteError(t *testing.T) {
	ctx, _ := testContext(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Missing Airtable configuration"}`))
	})

	err := (&CategoriesCmd{Domain: "ux"}).Run(ctx)
	if _, ok := gateway.IsRemote(err); !ok {
		t.Errorf("Run() error = %v, want a RemoteError", err)
	}
}

func TestTerminalViewMessages(t *testing.T) {
	out := &bytes.Buffer{}
	view := NewTerminalView(out)

	view.ShowMessage(form.Message{Level: form.LevelError, Text: form.MsgDateOrder})
	view.ShowMessage(form.Message{Level: form.LevelSuccess, Text: form.MsgSubmitSuccess})

	text := out.String()
	if !strings.Contains(text, "✗ End date must be after start date") {
		t.Errorf("output = %q", text)
	}
	if !strings.Contains(text, "✓ Report created successfully!") {
		t.Errorf("output = %q", text)
	}

	view.Render(form.State{Step: models.StepSourceCategories})
	if got := StepHeader(view.State()); !strings.Contains(got, "Step 2 of 3: source & categories") {
		t.Errorf("StepHeader() = %q", got)
	}
}

func TestApplySelectionKeepsHidden(t *testing.T) {
	ctx, _ := testContext(t, categoriesHandler(t))
	gw, err := ctx.Gateway()
	if err != nil {
		t.Fatal(err)
	}
	ctx.Config.Airtable.Tables.AcademyCategories = "tblUX"
	ctrl := form.NewController(ctx.Config, gw, nil, nil)
	_ = ctrl.Init(context.Background())

	if err := ctrl.ToggleCategory(models.CategoryDomainUX, "rec1"); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.FilterCategories(models.CategoryDomainUX, "checkout"); err != nil {
		t.Fatal(err)
	}
	if err := applySelection(ctrl, models.CategoryDomainUX, []string{"rec2"}); err != nil {
		t.Fatalf("applySelection() error = %v", err)
	}

	if diff := cmp.Diff([]string{"rec1", "rec2"}, ctrl.Draft().UXCategories); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyBasicInfo(t *testing.T) {
	ctx, _ := testContext(t, categoriesHandler(t))
	gw, err := ctx.Gateway()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		start     string
		end       string
		wantErr   string
		wantStart string
	}{
		{"valid dates", "2024-01-01", "2024-01-31", "", "2024-01-01"},
		{"bad start date", "01/01/2024", "2024-01-31", "start date", ""},
		{"bad end date", "2024-01-01", "", "end date", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := form.NewController(ctx.Config, gw, nil, nil)
			before := ctrl.Draft()

			err := applyBasicInfo(ctrl, "Quarterly review", tt.start, tt.end)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("applyBasicInfo() error = %v, want %q", err, tt.wantErr)
				}
				if !ctrl.Draft().DateStart.Equal(before.DateStart) || ctrl.Draft().Title != "" {
					t.Error("a rejected date must leave the draft untouched")
				}
				return
			}
			if err != nil {
				t.Fatalf("applyBasicInfo() error = %v", err)
			}
			if got := ctrl.Draft().DateStart.Format("2006-01-02"); got != tt.wantStart {
				t.Errorf("DateStart = %s, want %s", got, tt.wantStart)
			}
		})
	}
}

func TestPresetOptions(t *testing.T) {
	ctx, _ := testContext(t, categoriesHandler(t))
	ctx.Config.Form.FilterPresets = []config.FilterPreset{{Name: "Last 7 days", Filter: `{}`}}
	gw, err := ctx.Gateway()
	if err != nil {
		t.Fatal(err)
	}
	ctrl := form.NewController(ctx.Config, gw, nil, nil)

	options := presetOptions(ctrl)
	if len(options) != 2 || options[0].Value != "" || options[1].Value != "Last 7 days" {
		t.Errorf("presetOptions() = %+v", options)
	}
}

func TestKeyringCommands(t *testing.T) {
	keyring.MockInit()
	out := &bytes.Buffer{}
	ctx := &Context{Out: out}

	if err := (&KeyringStatusCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&KeyringSetCmd{APIKey: "pat123456"}).Run(ctx); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := (&KeyringStatusCmd{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (&KeyringDeleteCmd{}).Run(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := (&KeyringDeleteCmd{}).Run(ctx); err == nil {
		t.Error("deleting a missing key should fail")
	}

	text := out.String()
	for _, want := range []string{"No API key stored", "API key stored in OS keyring", "stored in keyring (…3456)", "API key deleted"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
