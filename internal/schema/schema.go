// Package schema validates pipeline JSON and module command parameters
// against JSON Schema documents before they ever reach the graph decoder
// or a loaded module, so malformed input fails with a precise pointer
// into the offending document instead of a confusing downstream panic.
package schema

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// pipelineSchemaSrc describes the declarative pipeline document shape:
// a Command object, or an array of them (spec §2's alternating
// serial/parallel array nesting is a structural property the decoder
// enforces, not one JSON Schema can express cleanly, so this schema only
// pins down the leaf shape and that composites are arrays).
const pipelineSchemaSrc = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"$id": "https://divvun.no/schemas/pipeline.json",
	"anyOf": [
		{"$ref": "#/$defs/command"},
		{"type": "array", "minItems": 1, "items": {"$ref": "#"}}
	],
	"$defs": {
		"command": {
			"type": "object",
			"required": ["module", "command"],
			"properties": {
				"module": {"type": "string", "minLength": 1},
				"command": {"type": "string", "minLength": 1},
				"parameters": {"type": "array", "items": {"type": "string"}}
			},
			"additionalProperties": false
		}
	}
}`

var pipelineSchema = mustCompile("pipeline.json", pipelineSchemaSrc)

func mustCompile(name, src string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(src)))
	if err != nil {
		panic(fmt.Sprintf("schema: invalid embedded schema %s: %v", name, err))
	}
	if err := c.AddResource("https://divvun.no/schemas/"+name, doc); err != nil {
		panic(fmt.Sprintf("schema: add resource %s: %v", name, err))
	}
	s, err := c.Compile("https://divvun.no/schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("schema: compile %s: %v", name, err))
	}
	return s
}

// ValidatePipelineJSON checks raw pipeline JSON against the declarative
// document shape before it reaches graph.Decode.
func ValidatePipelineJSON(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("schema: pipeline document is not valid JSON: %w", err)
	}
	if err := pipelineSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema: pipeline document failed validation: %w", err)
	}
	return nil
}
