package testmodule

import "github.com/divvun/divvun-pipeline/internal/abi"

// concatStrings mirrors modules/concat-strings: its one command, "concat",
// joins every input string in order.
type concatStrings struct {
	baseHandle
}

func newConcatStrings() *concatStrings { return &concatStrings{} }

func (m *concatStrings) Info() (abi.ModuleMetadata, error) {
	return abi.ModuleMetadata{
		Name: "concat-strings",
		Commands: []abi.CommandMetadata{
			{Name: "concat", Inputs: []string{"string"}, Output: "string"},
		},
	}, nil
}

func (m *concatStrings) Run(params abi.RunParams) (abi.RunResult, error) {
	if params.Command != "concat" {
		return abi.RunResult{}, unknownCommand(params.Command)
	}

	var joined []byte
	for _, in := range params.Inputs {
		joined = append(joined, in...)
	}
	out := m.iface.Alloc(len(joined))
	copy(out, joined)
	return abi.RunResult{Output: out}, nil
}
