// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"scholarship-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// certificateSchemas holds the JSON schema for each certificate kind's
// extracted-detail payload.
var certificateSchemas = map[models.CertificateKind]map[string]interface{}{
	models.CertificateGrades: {
		"type": "object",
		"properties": map[string]interface{}{
			"schoolYear": map[string]interface{}{
				"type":      "string",
				"minLength": 4,
			},
			"generalAverage": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
				"maximum": 100,
			},
			"remarks": map[string]interface{}{
				"type": "string",
			},
		},
		"required": []interface{}{"schoolYear", "generalAverage"},
	},
	models.CertificateRegistration: {
		"type": "object",
		"properties": map[string]interface{}{
			"schoolName": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"studentNumber": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"semester": map[string]interface{}{
				"type": "string",
			},
		},
		"required": []interface{}{"schoolName", "studentNumber"},
	},
}

// ValidateCertificateDetails checks a certificate's extracted-detail
// payload against the schema for its kind. Unknown kinds are rejected.
func ValidateCertificateDetails(kind models.CertificateKind, details map[string]interface{}) error {
	schema, ok := certificateSchemas[kind]
	if !ok {
		return fmt.Errorf("no schema for certificate kind %q", kind)
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(details)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation for %s: %w", kind, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%s details invalid: %s", kind, strings.Join(msgs, "; "))
	}
	return nil
}
