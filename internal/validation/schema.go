// Package validation checks config files and tool arguments against the
// embedded JSON Schemas.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/piyushigoyal/claimtriage/schemas"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// configSchema is the compiled JSON Schema for .triage.yaml files.
var configSchema *jsonschema.Schema

func init() {
	configSchema = mustCompileSchema(schemas.ConfigSchemaJSON, "config.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	sch, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return sch
}

// Compile parses and compiles a JSON Schema document.
func Compile(name, raw string) (*jsonschema.Schema, error) {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to parse embedded %s: %w", name, err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add %s resource: %w", name, err)
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return sch, nil
}

// ValidateConfigBytes validates raw YAML bytes against the config schema.
func ValidateConfigBytes(data []byte) []string {
	return validateYAMLBytes(configSchema, data)
}

// ValidateJSON validates a raw JSON document (such as tool call arguments)
// against schema.
func ValidateJSON(schema *jsonschema.Schema, data []byte) []string {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return validateAgainstSchema(schema, doc)
}

func validateYAMLBytes(schema *jsonschema.Schema, data []byte) []string {
	// Parse YAML into generic any
	var yamlDoc any
	if err := yaml.Unmarshal(data, &yamlDoc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}
	if yamlDoc == nil {
		// an empty file is a valid (all defaults) config
		return nil
	}

	jsonCompatible := convertToJSONCompatible(yamlDoc)

	return validateAgainstSchema(schema, jsonCompatible)
}

func validateAgainstSchema(schema *jsonschema.Schema, instance any) []string {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}

// convertToJSONCompatible converts YAML-decoded values to JSON-compatible types.
// yaml.v3 decodes to map[string]any which is fine, but integers need to stay as-is.
func convertToJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = convertToJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = convertToJSONCompatible(v2)
		}
		return result
	default:
		return val
	}
}
