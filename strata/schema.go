package strata

import (
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// Table schema
// -----------------------------------------------------------------------------

// StructType is a table schema: an ordered list of named fields.
type StructType struct {
	Fields []StructField `json:"fields"`
}

// StructField is a single schema field.
type StructField struct {
	Name     string         `json:"name"`
	Type     SchemaType     `json:"type"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SchemaType holds a field's data type. Primitive types are a bare name
// ("long", "string", ...); nested types (struct, array, map) are kept as their
// raw JSON form; strata plans scans over top-level columns and does not need
// to interpret nesting.
type SchemaType struct {
	// Name is the primitive type name, empty for nested types.
	Name string

	// Raw is the original JSON value.
	Raw json.RawMessage
}

// UnmarshalJSON accepts either a JSON string (primitive) or object (nested).
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	t.Raw = append(json.RawMessage(nil), data...)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Name)
	}
	t.Name = ""
	return nil
}

// MarshalJSON writes the type back in its original form.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if t.Raw != nil {
		return t.Raw, nil
	}
	return json.Marshal(t.Name)
}

// ParseSchema decodes a schema string from a metaData action. The string is a
// JSON struct type: {"type":"struct","fields":[...]}.
func ParseSchema(schemaString string) (*StructType, error) {
	var wire struct {
		Type   string        `json:"type"`
		Fields []StructField `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schemaString), &wire); err != nil {
		return nil, fmt.Errorf("strata: parse schema: %w", err)
	}
	if wire.Type != "struct" {
		return nil, fmt.Errorf("strata: parse schema: top-level type %q, want struct", wire.Type)
	}
	return &StructType{Fields: wire.Fields}, nil
}

// Field returns the field with the given name.
func (s *StructType) Field(name string) (StructField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// FieldNames returns the field names in schema order.
func (s *StructType) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Project returns a new schema containing the named fields, in the order
// given. Returns ErrInvalidProjection if a name is absent.
func (s *StructType) Project(names []string) (*StructType, error) {
	fields := make([]StructField, 0, len(names))
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in schema", ErrInvalidProjection, name)
		}
		fields = append(fields, f)
	}
	return &StructType{Fields: fields}, nil
}
