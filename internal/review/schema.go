package review

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/labelworks/doclabel/internal/common"
)

// JSON Schemas (draft 2020-12 subset) for the edit payloads. Built as
// generic maps and compiled on demand; shape errors become validation
// errors before any decode happens.

func KeyValuePairsSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": keyValuePairSchema(),
	}
}

func TablesSchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": tableSchema(),
	}
}

func keyValuePairSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"key":        annotatedEntitySchema(),
			"value":      annotatedEntitySchema(),
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"key"},
	}
}

func annotatedEntitySchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"content":         map[string]any{"type": "string"},
			"boundingRegions": map[string]any{"type": "array", "items": regionSchema()},
			"spans":           map[string]any{"type": "array", "items": spanSchema()},
		},
	}
}

func tableSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"rowCount":    map[string]any{"type": "integer", "minimum": 0},
			"columnCount": map[string]any{"type": "integer", "minimum": 0},
			"cells":       map[string]any{"type": "array", "items": tableCellSchema()},
		},
		"required": []string{"rowCount", "columnCount"},
	}
}

func tableCellSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"kind":            map[string]any{"type": "string"},
			"rowIndex":        map[string]any{"type": "integer", "minimum": 0},
			"columnIndex":     map[string]any{"type": "integer", "minimum": 0},
			"content":         map[string]any{"type": "string"},
			"boundingRegions": map[string]any{"type": "array", "items": regionSchema()},
			"spans":           map[string]any{"type": "array", "items": spanSchema()},
			"elements":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

func regionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"pageNumber": map[string]any{"type": "integer", "minimum": 1},
			"polygon":    map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
		},
	}
}

func spanSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"offset": map[string]any{"type": "integer", "minimum": 0},
			"length": map[string]any{"type": "integer", "minimum": 0},
		},
	}
}

// ValidateEditPayload validates raw body bytes against schemaMap and
// classifies any mismatch as a validation error.
func ValidateEditPayload(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return common.Validationf("invalid json: %v", err)
	}
	if err := schema.Validate(v); err != nil {
		return common.Validationf("payload does not match schema: %v", err)
	}
	return nil
}
