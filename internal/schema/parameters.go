package schema

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/divvun/divvun-pipeline/internal/abi"
)

// ValidateParameters checks a command invocation's parameters against
// that command's declared ParametersSchema, if it has one. Commands with
// a blank ParametersSchema accept any parameters; the module itself is
// the final authority on whether they make sense.
func ValidateParameters(cmd abi.CommandMetadata, parameters []string) error {
	if cmd.ParametersSchema == "" {
		return nil
	}

	c := jsonschema.NewCompiler()
	id := "https://divvun.no/schemas/command/" + cmd.Name + "/parameters.json"
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(cmd.ParametersSchema)))
	if err != nil {
		return fmt.Errorf("schema: command %q declares an invalid parameters schema: %w", cmd.Name, err)
	}
	if err := c.AddResource(id, doc); err != nil {
		return fmt.Errorf("schema: command %q: %w", cmd.Name, err)
	}
	s, err := c.Compile(id)
	if err != nil {
		return fmt.Errorf("schema: command %q: compile parameters schema: %w", cmd.Name, err)
	}

	params := make([]any, len(parameters))
	for i, p := range parameters {
		params[i] = p
	}
	if err := s.Validate(params); err != nil {
		return fmt.Errorf("schema: command %q: parameters failed validation: %w", cmd.Name, err)
	}
	return nil
}
