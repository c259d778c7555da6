package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

type ToolInputSchemaProperties map[string]map[string]interface{}

// ToolInputSchema is a JSON Schema representation of a tool's arguments.
type ToolInputSchema struct {
	Type       string                    `json:"type"`
	Properties ToolInputSchemaProperties `json:"properties,omitempty"`
	Required   []string                  `json:"required,omitempty"`
}

// Load populates the schema from a struct type. Pointer fields and fields
// tagged omitempty are optional; everything else is required. The
// "description" tag becomes the property description.
func (s *ToolInputSchema) Load(v any) error {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("expected a struct type, got %s", t.Kind())
	}
	properties, required := structToProperties(t)
	s.Type = "object"
	s.Properties = properties
	s.Required = required
	return nil
}

// structToProperties converts a struct type into InputSchema properties and
// required field names.
func structToProperties(t reflect.Type) (ToolInputSchemaProperties, []string) {
	properties := make(ToolInputSchemaProperties)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty, skip := parseJSONTag(field)
		if skip {
			continue
		}
		fieldSchema := schemaForType(field.Type, false)
		if description := field.Tag.Get("description"); description != "" {
			fieldSchema["description"] = description
		}
		properties[name] = fieldSchema
		if field.Type.Kind() != reflect.Pointer && !omitempty {
			required = append(required, name)
		}
	}
	return properties, required
}

func parseJSONTag(field reflect.StructField) (name string, omitempty, skip bool) {
	name = field.Name
	tag := field.Tag.Get("json")
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "-" {
		return "", false, true
	}
	if parts[0] != "" {
		name = parts[0]
	}
	for _, part := range parts[1:] {
		if part == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty, false
}

// schemaForType returns the JSON Schema fragment for a reflect.Type. The
// inSlice flag suppresses the nullable marker on slice elements.
func schemaForType(t reflect.Type, inSlice bool) map[string]interface{} {
	schema := make(map[string]interface{})

	if t == reflect.TypeOf(time.Time{}) {
		schema["type"] = "string"
		schema["format"] = "date-time"
		return schema
	}
	if t.Kind() == reflect.Pointer {
		return schemaForType(t.Elem(), inSlice)
	}

	switch t.Kind() {
	case reflect.Bool:
		schema["type"] = "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema["type"] = "integer"
	case reflect.Float32, reflect.Float64:
		schema["type"] = "number"
	case reflect.String:
		schema["type"] = "string"
	case reflect.Slice, reflect.Array:
		schema["type"] = "array"
		schema["items"] = schemaForType(t.Elem(), true)
	case reflect.Map:
		schema["type"] = "object"
		schema["additionalProperties"] = schemaForType(t.Elem(), false)
	case reflect.Struct:
		schema["type"] = "object"
		properties, required := structToProperties(t)
		schema["properties"] = properties
		if len(required) > 0 {
			schema["required"] = required
		}
	default:
		schema["type"] = "string"
	}
	return schema
}
