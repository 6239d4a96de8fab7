package model

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchemaFor reflects a Go type into a JSON schema map suitable for
// constrained decoding (ResponseShape.Schema).
func JSONSchemaFor[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var value T
	schema := reflector.Reflect(value)

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var schemaMap map[string]any
	err = json.Unmarshal(schemaJSON, &schemaMap)
	if err != nil {
		return nil, err
	}

	return schemaMap, nil
}
