package testmodule

import "github.com/divvun/divvun-pipeline/internal/abi"

// doThingsStrings mirrors modules/do-things-strings, a deliberately odd
// reference module used by the original test suite to exercise the
// unknown-command error path: its two real commands ignore their input
// entirely and return fixed strings, verbatim from the reference
// implementation (typo included).
type doThingsStrings struct {
	baseHandle
}

func newDoThingsStrings() *doThingsStrings { return &doThingsStrings{} }

func (m *doThingsStrings) Info() (abi.ModuleMetadata, error) {
	return abi.ModuleMetadata{
		Name: "do-things-strings",
		Commands: []abi.CommandMetadata{
			{Name: "badazzle", Inputs: []string{"string"}, Output: "string"},
			{Name: "load_nude_tayne", Inputs: []string{"string"}, Output: "string"},
		},
	}, nil
}

func (m *doThingsStrings) Run(params abi.RunParams) (abi.RunResult, error) {
	switch params.Command {
	case "badazzle":
		if len(params.Inputs) == 0 {
			return abi.RunResult{}, unknownCommand(params.Command)
		}
		return m.output("a computatoion"), nil
	case "load_nude_tayne":
		if len(params.Inputs) == 0 {
			return abi.RunResult{}, unknownCommand(params.Command)
		}
		return m.output("a picture of a handsome man"), nil
	default:
		return abi.RunResult{}, unknownCommand(params.Command)
	}
}

func (m *doThingsStrings) output(s string) abi.RunResult {
	out := m.iface.Alloc(len(s))
	copy(out, s)
	return abi.RunResult{Output: out}
}
