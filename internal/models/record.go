package models

import "encoding/json"

// Record is one Airtable row
type Record struct {
	ID          string                 `json:"id"`
	CreatedTime string                 `json:"createdTime,omitempty"`
	Fields      map[string]interface{} `json:"fields"`
}

// StringField returns a field as a string, or "" when absent or not a string
func (r Record) StringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// ListResponse is the body of a list call
type ListResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// RecordFields wraps the fields of a record to create
type RecordFields struct {
	Fields map[string]interface{} `json:"fields"`
}

// CreateRequest is the body of a create call
type CreateRequest struct {
	Records []RecordFields `json:"records"`
}

// CreateResponse is the body returned by a create call
type CreateResponse struct {
	Records []Record `json:"records"`
}

// ErrorEnvelope is the relay's error body
type ErrorEnvelope struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
	Message string          `json:"message,omitempty"`
}

// AirtableError is the error object Airtable returns; "error" is either a
// string code or an object with type and message.
type AirtableError struct {
	Error json.RawMessage `json:"error"`
}

// Message extracts the human readable message of an Airtable error body
func (e AirtableError) Message() string {
	if len(e.Error) == 0 {
		return ""
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
