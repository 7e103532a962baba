// Package graph implements the pipeline graph model: a tree of mutually
// recursive serial and parallel nodes, deserialized from a bundle's
// declarative JSON form.
package graph

import "fmt"

// Command is a leaf node naming a module command and its parameters.
type Command struct {
	Module     string   `json:"module"`
	Command    string   `json:"command"`
	Parameters []string `json:"parameters,omitempty"`
}

func (c Command) String() string {
	return fmt.Sprintf("%s.%s", c.Module, c.Command)
}

// SerialNode is either a leaf Command or an ordered sequence of
// ParallelNodes run in order, each stage's output threaded into the next
// stage's input (P-3).
type SerialNode struct {
	Single   *Command
	Sequence []ParallelNode
}

// ParallelNode is either a leaf Command or an unordered set of SerialNodes
// run concurrently, whose outputs are concatenated in declaration order
// (P-4) to form the stage output.
type ParallelNode struct {
	Single *Command
	Set    []SerialNode
}

// Pipeline is the decoded declarative graph. The root is always a
// SerialNode.
type Pipeline struct {
	Root SerialNode
}

// IsLeaf reports whether the node is a single Command rather than a
// composite sequence.
func (n SerialNode) IsLeaf() bool { return n.Single != nil }

// IsLeaf reports whether the node is a single Command rather than a
// composite set.
func (n ParallelNode) IsLeaf() bool { return n.Single != nil }
