package llm

import (
	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

// ToolSpec describes one tool in the static catalog sent with every
// completion call: a unique name, a description the model selects by, and a
// JSON-schema input contract.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// toFunctionDeclarations converts the tool catalog into the provider's
// function declaration form.
func toFunctionDeclarations(specs []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGenaiSchema(spec.InputSchema),
		})
	}
	return decls
}

// toGenaiSchema maps the subset of JSON schema our tool contracts use
// (object/string/integer/number/boolean/array, properties, required, enum)
// onto genai.Schema.
func toGenaiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}

	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	for _, v := range s.Enum {
		if str, ok := v.(string); ok {
			out.Enum = append(out.Enum, str)
		}
	}
	return out
}

func toGenaiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}
