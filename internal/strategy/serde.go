package strategy

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// ParseSpec parses a YAML document into a Spec without validating it.
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpec, "failed to parse strategy spec", err)
	}

	return &spec, nil
}

// ParseAndValidateSpec parses and validates a YAML spec document.
func ParseAndValidateSpec(data []byte) (*Spec, error) {
	spec, err := ParseSpec(data)
	if err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

// Marshal serializes the spec to its persisted YAML form. Serializing and
// parsing back yields an identical spec, field for field.
func (s *Spec) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpec, "failed to marshal strategy spec", err)
	}

	return data, nil
}

// Clone deep-copies the spec through its YAML form. Parameter sweeps mutate
// clones, never the stored spec.
func (s *Spec) Clone() (*Spec, error) {
	data, err := s.Marshal()
	if err != nil {
		return nil, err
	}

	return ParseSpec(data)
}

// GenerateSchema generates a JSON schema describing the spec document.
func GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.HasSuffix(t.String(), "strategy.Operator") {
				enum := make([]any, 0, len(AllOperators))
				for _, op := range AllOperators {
					enum = append(enum, string(op))
				}

				return &jsonschema.Schema{
					Type: "string",
					Enum: enum,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&Spec{})
	schema.Title = "strategy-spec"
	schema.Description = "Declarative trading strategy specification"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates an indented JSON schema string for the spec.
func GenerateSchemaJSON() (string, error) {
	schema := GenerateSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal spec schema", err)
	}

	return string(data), nil
}
