package graph

import "errors"

// ErrEmptyNode is returned when a composite node's array is empty.
var ErrEmptyNode = errors.New("graph: empty composite node")

// ErrInvalidCommand is returned when a leaf Command names an empty module
// or command.
var ErrInvalidCommand = errors.New("graph: command requires a nonempty module and command name")

// Validate checks every leaf names a nonempty module and command, and that
// no node is an empty array. Empty-node errors are already raised during
// Decode; Validate additionally catches pipelines built programmatically
// (e.g. round-tripped via Encode) rather than decoded from JSON.
func Validate(p *Pipeline) error {
	return validateSerial(p.Root)
}

func validateSerial(n SerialNode) error {
	if n.Single != nil {
		return validateCommand(*n.Single)
	}
	if len(n.Sequence) == 0 {
		return ErrEmptyNode
	}
	for _, child := range n.Sequence {
		if err := validateParallel(child); err != nil {
			return err
		}
	}
	return nil
}

func validateParallel(n ParallelNode) error {
	if n.Single != nil {
		return validateCommand(*n.Single)
	}
	if len(n.Set) == 0 {
		return ErrEmptyNode
	}
	for _, child := range n.Set {
		if err := validateSerial(child); err != nil {
			return err
		}
	}
	return nil
}

func validateCommand(c Command) error {
	if c.Module == "" || c.Command == "" {
		return ErrInvalidCommand
	}
	return nil
}
