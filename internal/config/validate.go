package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema is the compiled-in JSON Schema for a configuration file,
// following the same santhosh-tekuri/jsonschema/v5 call pattern as the
// teacher's internal/config/validate.go.
const configSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"db": {"type": "string"},
		"http_port": {"type": "integer", "minimum": 1, "maximum": 65535},
		"services": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"kind": {"type": "string"},
					"options": {"type": "object"},
					"secrets": {"type": "object"}
				},
				"required": ["kind"]
			}
		},
		"dashboard": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	}
}`

// Validate checks raw against configSchema, mirroring the teacher's
// Validate(schema, instance) call shape.
func Validate(raw json.RawMessage) error {
	sch, err := jsonschema.CompileString("config.json", configSchema)
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}
