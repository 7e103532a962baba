package testmodule

import (
	"github.com/divvun/divvun-pipeline/internal/abi"
)

// reverseString mirrors modules/reverse-string: "reverse" reverses its
// single input string rune-wise; "reverse_resource" reverses a named
// resource's bytes instead of an input, round-tripping through the
// Resource Registry via the host interface.
type reverseString struct {
	baseHandle
}

func newReverseString() *reverseString { return &reverseString{} }

func (m *reverseString) Info() (abi.ModuleMetadata, error) {
	return abi.ModuleMetadata{
		Name:    "reverse-string",
		Version: "0.0.2",
		Commands: []abi.CommandMetadata{
			{Name: "reverse", Inputs: []string{"string"}, Output: "string"},
			{
				Name:             "reverse_resource",
				Inputs:           nil,
				Output:           "string",
				ParametersSchema: `{"type": "array", "minItems": 1, "items": {"type": "string"}}`,
			},
		},
	}, nil
}

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func (m *reverseString) Run(params abi.RunParams) (abi.RunResult, error) {
	switch params.Command {
	case "reverse":
		if len(params.Inputs) == 0 {
			return abi.RunResult{}, abi.ErrorRecord{Kind: "module_error", Message: "no input provided"}
		}
		result := reverseRunes(string(params.Inputs[0]))
		out := m.iface.Alloc(len(result))
		copy(out, result)
		return abi.RunResult{Output: out}, nil

	case "reverse_resource":
		if len(params.Parameters) == 0 {
			return abi.RunResult{}, abi.ErrorRecord{Kind: "invalid_parameters", Message: "resource name parameter required"}
		}
		data, ok := m.iface.LoadResource(params.Parameters[0])
		if !ok {
			return abi.RunResult{}, abi.ErrorRecord{Kind: "module_error", Message: "resource not found: " + params.Parameters[0]}
		}
		defer m.iface.ReleaseResource(params.Parameters[0])

		result := reverseRunes(string(data))
		out := m.iface.Alloc(len(result))
		copy(out, result)
		return abi.RunResult{Output: out}, nil

	default:
		return abi.RunResult{}, unknownCommand(params.Command)
	}
}
