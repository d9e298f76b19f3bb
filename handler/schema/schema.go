package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed scan-request.json
var scanRequest json.RawMessage
var scanRequestLoader = gojsonschema.NewBytesLoader(scanRequest)

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid scan request: " + strings.Join(e.Details, "; ")
}

func IsValidationError(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

type Schema struct {
	schema *gojsonschema.Schema
}

func NewScanRequestSchema() (*Schema, error) {
	schema, err := gojsonschema.NewSchema(scanRequestLoader)
	if err != nil {
		return nil, err
	}

	return &Schema{schema: schema}, nil
}

// Validate checks data against the schema. It returns a *ValidationError
// if data is valid JSON that does not match.
func (s *Schema) Validate(data []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}

	if res.Valid() {
		return nil
	}

	details := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		details = append(details, e.String())
	}

	return &ValidationError{Details: details}
}
