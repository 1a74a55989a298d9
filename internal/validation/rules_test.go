package validation

import (
	"strings"
	"testing"
	"time"

	"report-generator/internal/config"
	"report-generator/internal/models"
)

func testRules() RuleSet {
	return NewRuleSet(config.FormConfig{
		DataSources:    []string{"Beam Knowledge", "UX issues"},
		Templates:      []string{"Detailed Analysis", "Executive Summary", "Custom"},
		OutputFormats:  []string{"PDF Report", "Email Summary"},
		TitleMinLength: 3,
		TitleMaxLength: 100,
	})
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestBasicInfoTitleLength(t *testing.T) {
	rules := testRules()

	for n := 0; n <= 6; n++ {
		draft := models.ReportDraft{
			Title:     strings.Repeat("a", n),
			DateStart: day(1),
			DateEnd:   day(2),
		}
		got := rules.StepValid(models.StepBasicInfo, draft)
		want := n >= 3
		if got != want {
			t.Errorf("title length %d: valid = %v, want %v", n, got, want)
		}
	}
}

func TestBasicInfoLongTitleStillValid(t *testing.T) {
	rules := testRules()
	draft := models.ReportDraft{Title: strings.Repeat("x", 150), DateStart: day(1), DateEnd: day(2)}

	if !rules.StepValid(models.StepBasicInfo, draft) {
		t.Error("a long title with a good date range should be valid")
	}
}

func TestBasicInfoTrimsTitle(t *testing.T) {
	rules := testRules()
	draft := models.ReportDraft{Title: "  ab  ", DateStart: day(1), DateEnd: day(2)}

	if rules.StepValid(models.StepBasicInfo, draft) {
		t.Error("whitespace must not count toward the title length")
	}
}

func TestBasicInfoDateOrdering(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{name: "start before end", start: day(1), end: day(5), want: true},
		{name: "same day", start: day(5), end: day(5), want: false},
		{name: "start after end", start: day(9), end: day(5), want: false},
		{name: "missing start", end: day(5), want: false},
		{name: "missing end", start: day(5), want: false},
	}

	for _, tt := range tests {
		for _, title := range []string{"", "ok", "Quarterly review"} {
			t.Run(tt.name+"/"+title, func(t *testing.T) {
				draft := models.ReportDraft{Title: title, DateStart: tt.start, DateEnd: tt.end}
				got := rules.StepValid(models.StepBasicInfo, draft)
				want := tt.want && len(title) >= 3
				if got != want {
					t.Errorf("valid = %v, want %v", got, want)
				}
			})
		}
	}
}

func TestSourceStep(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name  string
		draft models.ReportDraft
		want  bool
	}{
		{name: "multi-source without selection", draft: models.ReportDraft{MultiSource: true}, want: true},
		{name: "multi-source with selection", draft: models.ReportDraft{MultiSource: true, DataSource: "UX issues"}, want: true},
		{name: "multi-source with unknown selection", draft: models.ReportDraft{MultiSource: true, DataSource: "nope"}, want: true},
		{name: "single without selection", draft: models.ReportDraft{}, want: false},
		{name: "single with selection", draft: models.ReportDraft{DataSource: "Beam Knowledge"}, want: true},
		{name: "single with unknown source", draft: models.ReportDraft{DataSource: "Twitter"}, want: false},
		{name: "categories are optional", draft: models.ReportDraft{DataSource: "UX issues", UXCategories: nil}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.StepValid(models.StepSourceCategories, tt.draft); got != tt.want {
				t.Errorf("valid = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTemplateOutputStep(t *testing.T) {
	rules := testRules()

	draft := models.ReportDraft{Template: "Custom"}
	errs := rules.ValidateStep(models.StepTemplateOutput, draft)
	if len(errs) != 1 || errs[0].Field != FieldOutputFormat {
		t.Fatalf("Custom without formats: errors = %+v, want one outputFormat error", errs)
	}

	draft.OutputFormats = []string{"PDF Report"}
	if !rules.StepValid(models.StepTemplateOutput, draft) {
		t.Error("Custom with one output format should be valid")
	}

	draft.Template = ""
	if rules.StepValid(models.StepTemplateOutput, draft) {
		t.Error("missing template should be invalid")
	}
}

func TestClampTitle(t *testing.T) {
	rules := testRules()

	long := strings.Repeat("é", 120)
	if got := rules.ClampTitle(long); len([]rune(got)) != 100 {
		t.Errorf("ClampTitle() length = %d runes, want 100", len([]rune(got)))
	}
	if got := rules.ClampTitle("short"); got != "short" {
		t.Errorf("ClampTitle(short) = %q", got)
	}
}

func TestRuleCopiesOptions(t *testing.T) {
	rules := testRules()

	opts := rules.Options(FieldDataSource)
	opts[0] = "mutated"

	if rules.Rule(FieldDataSource).Options[0] != "Beam Knowledge" {
		t.Error("RuleSet must not be mutable through returned options")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{
		Step:   models.StepBasicInfo,
		Fields: []FieldError{{Field: FieldTitle, Message: "too short"}},
	}
	if !strings.Contains(err.Error(), "reportTitle: too short") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !err.Has(FieldTitle) || err.Has(FieldDateEnd) {
		t.Error("Has() reported the wrong fields")
	}
}
