package validation

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/records_payload.json
var recordsPayloadSchema []byte

var (
	recordsSchemaOnce sync.Once
	recordsSchema     *gojsonschema.Schema
	recordsSchemaErr  error
)

// SchemaError lists the violations of a JSON document against a schema
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Issues, "; "))
}

// RecordsSchema returns the compiled schema for create/update request bodies
func RecordsSchema() (*gojsonschema.Schema, error) {
	recordsSchemaOnce.Do(func() {
		recordsSchema, recordsSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(recordsPayloadSchema))
		if recordsSchemaErr != nil {
			recordsSchemaErr = fmt.Errorf("failed to load schema: %w", recordsSchemaErr)
		}
	})
	return recordsSchema, recordsSchemaErr
}

// ValidateDocument validates a JSON document against a schema
func ValidateDocument(doc []byte, schema *gojsonschema.Schema) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return &SchemaError{Issues: issues}
	}
	return nil
}

// ValidateRecordsPayload checks a {records: [{fields: {...}}]} body
func ValidateRecordsPayload(body []byte) error {
	schema, err := RecordsSchema()
	if err != nil {
		return err
	}
	return ValidateDocument(body, schema)
}
