// Package types holds the template and note shapes shared by the store, the
// note engine, the formatter, and the HTTP layer.
package types

// ValueType describes what a field is expected to hold after extraction.
type ValueType string

const (
	// ValueText is a plain narrative string.
	ValueText ValueType = "text"
	// ValueStructured is a nested object of sub-fields, e.g. vital signs.
	ValueStructured ValueType = "structured"
)

// FieldDefinition is one slot in a note template. Ordinal preserves the
// position the field held in the source document so renderings stay in
// clinical reading order regardless of storage round-trips.
type FieldDefinition struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Section     string    `json:"section"`
	ValueType   ValueType `json:"value_type"`
	Ordinal     int       `json:"ordinal"`
}

// Template is a named, ordered collection of field definitions.
type Template struct {
	Name   string            `json:"name"`
	Fields []FieldDefinition `json:"fields"`
}

// Keys returns the field keys in ordinal order.
func (t Template) Keys() []string {
	keys := make([]string, len(t.Fields))
	for i, field := range t.Fields {
		keys[i] = field.Key
	}
	return keys
}

// FieldValues maps template field keys to extracted values. A nil value means
// the transcript never mentioned the field; every template key is present.
type FieldValues map[string]any

// TemplateInfo is the listing projection of a stored template.
type TemplateInfo struct {
	Name       string `json:"name"`
	FieldCount int    `json:"field_count"`
	CreatedAt  string `json:"created_at"`
}
