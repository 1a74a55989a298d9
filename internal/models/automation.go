package models

// AutomationAction is the action name sent to the automation webhook
const AutomationAction = "generate_report"

// AutomationPayload is the body posted to the automation webhook
type AutomationPayload struct {
	RecordID string       `json:"recordId"`
	Action   string       `json:"action"`
	BaseID   string       `json:"baseId"`
	TableID  string       `json:"tableId"`
	FormData FormSnapshot `json:"formData"`
}

// FormSnapshot is the collected form data as the webhook receives it
type FormSnapshot struct {
	ReportTitle       string   `json:"reportTitle"`
	DateStart         string   `json:"dateStart"`
	DateEnd           string   `json:"dateEnd"`
	ReportPriority    string   `json:"reportPriority"`
	ReportTemplate    string   `json:"reportTemplate"`
	AdvancedFilters   string   `json:"advancedFilters"`
	ReportRecipients  string   `json:"reportRecipients"`
	MultiSource       bool     `json:"multiSource"`
	DataSource        string   `json:"dataSource"`
	UXCategories      []string `json:"uxCategories"`
	AcademyCategories []string `json:"academyCategories"`
	OutputFormats     []string `json:"outputFormats"`
}
