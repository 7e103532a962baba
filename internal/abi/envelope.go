// Package abi defines the Go-side view of the C ABI every module
// implements (spec §4.C): the interface block handed to a module at init,
// and the serialized envelope types crossing the module boundary.
//
// The original implementation this system was distilled from carried these
// as Cap'n Proto messages (a "segment-oriented schema with typed roots").
// No Cap'n Proto binding exists anywhere in this project's dependency
// corpus, so the envelope is carried as encoding/json instead — see
// DESIGN.md for the full justification. The ABI treats these as opaque
// byte spans in either case; only the host and the participating module
// need agree on the schema of a given stage's payload.
package abi

import "encoding/json"

// ModuleMetadata describes a loaded module: its name, version, and the
// commands it implements. Returned by pipeline_info.
type ModuleMetadata struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Commands []CommandMetadata `json:"commands"`
}

// CommandMetadata declares one command's typed inputs and output, plus
// an optional JSON Schema for its Parameters (spec §4.C "command
// parameter contract"). A blank ParametersSchema means the command
// takes no constrained parameters beyond what the module itself
// enforces at run time.
type CommandMetadata struct {
	Name             string   `json:"name"`
	Inputs           []string `json:"inputs"`
	Output           string   `json:"output"`
	ParametersSchema string   `json:"parameters_schema,omitempty"`
}

// Command looks up a command's metadata by name.
func (m ModuleMetadata) Command(name string) (CommandMetadata, bool) {
	for _, c := range m.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return CommandMetadata{}, false
}

// RunParams is the host-side view of the C params struct passed to
// pipeline_run: command name, ordered parameters, and the input payload
// list.
type RunParams struct {
	Command    string   `json:"command"`
	Parameters []string `json:"parameters,omitempty"`
	Inputs     [][]byte `json:"inputs"`
}

// EncodeRunParams serializes a RunParams for transmission to a dynamically
// loaded module's pipeline_run entry point.
func EncodeRunParams(p RunParams) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeRunParams parses the bytes a real pipeline_run implementation
// would receive; it is the inverse of EncodeRunParams. The in-process
// fake modules (internal/testmodule) receive RunParams directly and do
// not call it.
func DecodeRunParams(data []byte) (RunParams, error) {
	var p RunParams
	err := json.Unmarshal(data, &p)
	return p, err
}

// RunResult holds the output bytes produced by a successful pipeline_run
// call. The bytes must have come from the module's alloc_fn callback
// (Interface.Alloc), backed by the Host Allocator.
type RunResult struct {
	Output []byte
}

// ErrorRecord is the serialized error record a module writes to its output
// fields when pipeline_run returns false.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e ErrorRecord) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return e.Kind + ": " + e.Message
}

// EncodeMetadata serializes ModuleMetadata for transmission across the
// ABI boundary (what a real pipeline_info implementation would return).
func EncodeMetadata(m ModuleMetadata) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMetadata parses bytes returned by pipeline_info.
func DecodeMetadata(data []byte) (ModuleMetadata, error) {
	var m ModuleMetadata
	err := json.Unmarshal(data, &m)
	return m, err
}

// EncodeError serializes an ErrorRecord for transmission in the output
// fields of a failed pipeline_run call.
func EncodeError(e ErrorRecord) ([]byte, error) {
	return json.Marshal(e)
}

// DecodeError parses bytes written to the output fields of a failed
// pipeline_run call.
func DecodeError(data []byte) (ErrorRecord, error) {
	var e ErrorRecord
	err := json.Unmarshal(data, &e)
	return e, err
}
