package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// runConfigSchema is the structural contract for run configuration
// files. Semantic rules (cross-field requirements, ranges that depend
// on kind) live in Validate.
const runConfigSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["name", "target", "run", "capacity"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"target": {
			"type": "object",
			"required": ["baseUrl", "surface", "scenario"],
			"properties": {
				"baseUrl": {"type": "string", "minLength": 1},
				"surface": {"enum": ["products", "payment"]},
				"scenario": {"type": "string", "minLength": 1},
				"timeout": {"type": "string"}
			}
		},
		"run": {
			"type": "object",
			"required": ["requests", "maxWait"],
			"properties": {
				"requests": {"type": "integer", "minimum": 1},
				"maxWait": {"type": "string"},
				"stagger": {"type": "string"}
			}
		},
		"capacity": {
			"type": "object",
			"required": ["kind"],
			"properties": {
				"kind": {"enum": ["fixed", "elastic"]},
				"limit": {"type": "integer", "minimum": 1},
				"coreSize": {"type": "integer", "minimum": 1},
				"maxSize": {"type": "integer", "minimum": 1},
				"queueCapacity": {"type": "integer", "minimum": 0},
				"maxWait": {"type": "string"}
			}
		}
	}
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("runconfig.json", strings.NewReader(runConfigSchema)); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	return compiler.MustCompile("runconfig.json")
}

// checkSchema validates the YAML document structurally. The document
// is round-tripped through JSON because the schema library validates
// JSON-shaped data.
func checkSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting config for validation: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return fmt.Errorf("converting config for validation: %w", err)
	}

	if err := compiledSchema.Validate(jsonDoc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("config schema: %s", flattenSchemaError(ve))
		}
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}

// flattenSchemaError collects leaf causes into one readable line.
func flattenSchemaError(err *jsonschema.ValidationError) string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, err.Message)
	}
	parts := make([]string, 0, len(err.Causes))
	for _, cause := range err.Causes {
		parts = append(parts, flattenSchemaError(cause))
	}
	return strings.Join(parts, "; ")
}
