// Package schema flattens OpenAPI schemas into the field path space used by
// the observers and compares the two sides.
package schema

import (
	"slices"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	typeObject  = "object"
	typeArray   = "array"
	typeInteger = "integer"
	typeNumber  = "number"
	typeNull    = "null"
)

// Field is what a contract says about one field path.
type Field struct {
	// Types is never nil. It is empty when the schema declares no type,
	// which matches no observed type.
	Types []string
	// Required is true only when the direct parent object lists the field.
	Required bool
}

// ExtractFields flattens an object schema into dot/bracket paths. Only
// single-typed "object" schemas with properties are expanded. Array
// properties expand their items under prop[0] when the items are an
// object; the element path itself is not a contract field. anyOf/oneOf
// variants contribute their types but are not expanded.
func ExtractFields(s *openapi3.Schema) map[string]Field {
	fields := make(map[string]Field)
	extract(s, "", fields, make(map[*openapi3.Schema]bool))
	return fields
}

func extract(s *openapi3.Schema, prefix string, into map[string]Field, visiting map[*openapi3.Schema]bool) {
	if s == nil || !s.Type.Is(typeObject) || len(s.Properties) == 0 {
		return
	}
	// Recursive component refs resolve to pointer cycles.
	if visiting[s] {
		return
	}
	visiting[s] = true
	defer delete(visiting, s)

	for name, ref := range s.Properties {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		prop := refValue(ref)
		into[path] = Field{
			Types:    typesOf(prop),
			Required: slices.Contains(s.Required, name),
		}
		if prop == nil {
			continue
		}

		switch {
		case prop.Type.Is(typeObject):
			extract(prop, path, into, visiting)
		case prop.Type.Is(typeArray) && prop.Items != nil:
			extract(refValue(prop.Items), path+"[0]", into, visiting)
		}
	}
}

func refValue(ref *openapi3.SchemaRef) *openapi3.Schema {
	if ref == nil {
		return nil
	}
	return ref.Value
}

// typesOf reads the declared type list, falling back to the types named by
// anyOf or oneOf variants. A nullable schema with declared types also
// admits "null".
func typesOf(s *openapi3.Schema) []string {
	types := []string{}
	if s == nil {
		return types
	}

	if declared := s.Type.Slice(); len(declared) > 0 {
		types = append(types, declared...)
	} else {
		variants := s.AnyOf
		if len(variants) == 0 {
			variants = s.OneOf
		}
		for _, v := range variants {
			if vs := refValue(v); vs != nil {
				for _, t := range vs.Type.Slice() {
					if t != "" {
						types = append(types, t)
					}
				}
			}
		}
	}

	if s.Nullable && len(types) > 0 && !slices.Contains(types, typeNull) {
		types = append(types, typeNull)
	}
	return types
}
