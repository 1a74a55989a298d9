package form

import (
	"context"
	"sync"
	"time"

	"report-generator/internal/config"
	"report-generator/internal/gateway"
	"report-generator/internal/models"
)

var testToday = time.Date(2024, 3, 31, 15, 4, 5, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		Airtable: config.AirtableConfig{
			BaseID: "appTest",
			Tables: config.TablesConfig{
				Reports:           "tblReports",
				UXCategories:      "tblUX",
				AcademyCategories: "tblAcademy",
			},
			ReportFields: config.FieldMap{
				ReportTitle:           "fldTitle",
				DataSource:            "fldSource",
				DateRangeStart:        "fldStart",
				DateRangeEnd:          "fldEnd",
				CategoryFilter:        "fldUX",
				AcademyCategoryFilter: "fldAcademy",
				ReportTemplate:        "fldTemplate",
				OutputFormat:          "fldOutput",
				ReportPriority:        "fldPriority",
				AdvancedFilters:       "fldFilters",
				ReportRecipients:      "fldRecipients",
				MultiSourceEnabled:    "fldMulti",
				ReportStatus:          "fldStatus",
				ConfigValidation:      "fldConfigValidation",
				AutomationEnabled:     "fldAutomation",
				GeneratedDate:         "Generated Date",
			},
			CategoryFields: config.CategoryFieldsConfig{Name: "Name", Description: "Category Description"},
		},
		Form: config.FormConfig{
			DataSources:      []string{models.DataSourceBeamKnowledge, models.DataSourceUXIssues},
			Templates:        []string{"Detailed Analysis", "Executive Summary", models.TemplateCustom},
			OutputFormats:    []string{"PDF Report", "Excel Spreadsheet", "Email Summary"},
			Priorities:       []string{"Low", "Medium", "High", "Critical"},
			DefaultPriority:  "Medium",
			TitleMinLength:   3,
			TitleMaxLength:   100,
			DefaultRangeDays: 30,
			CategoryLimit:    100,
			MessageTTL:       5 * time.Second,
			FilterPresets: []config.FilterPreset{
				{Name: "Critical issues", Filter: `{"status":"open","priority":["Critical"]}`},
				{Name: "Broken", Filter: `{"status":`},
			},
		},
		Automation: config.AutomationConfig{Timeout: time.Second},
	}
}

type createCall struct {
	table  string
	fields map[string]interface{}
	key    string
}

// fakeGateway records calls and answers from canned data
type fakeGateway struct {
	mu         sync.Mutex
	categories map[string][]models.CategoryOption
	listErr    map[string]error
	createID   string
	createErr  error
	block      chan struct{}
	started    chan struct{}
	creates    []createCall
}

func (f *fakeGateway) ListCategories(_ context.Context, tableID string, _ int, _ config.CategoryFieldsConfig) ([]models.CategoryOption, error) {
	if err := f.listErr[tableID]; err != nil {
		return nil, err
	}
	return f.categories[tableID], nil
}

func (f *fakeGateway) Create(_ context.Context, tableID string, fields map[string]interface{}, opts ...gateway.CreateOption) (string, error) {
	headers := map[string]string{}
	for _, opt := range opts {
		opt(headers)
	}
	f.mu.Lock()
	f.creates = append(f.creates, createCall{table: tableID, fields: fields, key: headers[gateway.IdempotencyHeader]})
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.createID, f.createErr
}

func (f *fakeGateway) calls() []createCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]createCall(nil), f.creates...)
}

// recordingView keeps everything the controller pushed
type recordingView struct {
	mu       sync.Mutex
	states   []State
	messages []Message
	loading  []bool
}

func (v *recordingView) Render(s State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func (v *recordingView) ShowMessage(m Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
}

func (v *recordingView) SetLoading(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = append(v.loading, on)
}

func (v *recordingView) last() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.states[len(v.states)-1]
}

func (v *recordingView) texts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.messages))
	for _, m := range v.messages {
		out = append(out, m.Text)
	}
	return out
}

func sampleCategories() map[string][]models.CategoryOption {
	return map[string][]models.CategoryOption{
		"tblUX": {
			{ID: "recUX1", Name: "Navigation", Description: "Menus and routing"},
			{ID: "recUX2", Name: "Checkout", Description: "Payment flow"},
			{ID: "recUX3", Name: "Onboarding", Description: "First run <b>experience</b>"},
		},
		"tblAcademy": {
			{ID: "recAC1", Name: "Basics", Description: "Getting started"},
			{ID: "recAC2", Name: "Advanced", Description: "Power users"},
		},
	}
}
