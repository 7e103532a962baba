package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// Decode parses the root JSON value of a pipeline definition (an array,
// or a single Command object) into a Pipeline. An object denotes a leaf
// Command; an array denotes a composite
// node. Nesting alternates serial/parallel by depth: the outermost array
// (depth 0) is serial, depth 1 is parallel, depth 2 is serial, and so on.
func Decode(r io.Reader) (*Pipeline, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("graph: decode pipeline json: %w", err)
	}

	root, err := decodeSerial(raw, 0)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Root: root}, nil
}

// Unmarshal is the []byte convenience form of Decode.
func Unmarshal(data []byte) (*Pipeline, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("graph: unmarshal pipeline json: %w", err)
	}
	root, err := decodeSerial(raw, 0)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Root: root}, nil
}

func decodeCommand(raw any, depth int) (Command, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Command{}, fmt.Errorf("graph: depth %d: expected a command object, got %T", depth, raw)
	}

	var cmd Command
	module, _ := obj["module"].(string)
	command, _ := obj["command"].(string)
	cmd.Module = module
	cmd.Command = command

	if rawParams, ok := obj["parameters"]; ok && rawParams != nil {
		list, ok := rawParams.([]any)
		if !ok {
			return Command{}, fmt.Errorf("graph: depth %d: parameters must be an array of strings", depth)
		}
		cmd.Parameters = make([]string, 0, len(list))
		for _, p := range list {
			s, ok := p.(string)
			if !ok {
				return Command{}, fmt.Errorf("graph: depth %d: parameters must be strings", depth)
			}
			cmd.Parameters = append(cmd.Parameters, s)
		}
	}

	return cmd, nil
}

func decodeSerial(raw any, depth int) (SerialNode, error) {
	switch v := raw.(type) {
	case map[string]any:
		cmd, err := decodeCommand(v, depth)
		if err != nil {
			return SerialNode{}, err
		}
		return SerialNode{Single: &cmd}, nil
	case []any:
		if len(v) == 0 {
			return SerialNode{}, fmt.Errorf("%w: depth %d", ErrEmptyNode, depth)
		}
		seq := make([]ParallelNode, 0, len(v))
		for _, item := range v {
			node, err := decodeParallel(item, depth+1)
			if err != nil {
				return SerialNode{}, err
			}
			seq = append(seq, node)
		}
		return SerialNode{Sequence: seq}, nil
	default:
		return SerialNode{}, fmt.Errorf("graph: depth %d: expected object or array, got %T", depth, raw)
	}
}

func decodeParallel(raw any, depth int) (ParallelNode, error) {
	switch v := raw.(type) {
	case map[string]any:
		cmd, err := decodeCommand(v, depth)
		if err != nil {
			return ParallelNode{}, err
		}
		return ParallelNode{Single: &cmd}, nil
	case []any:
		if len(v) == 0 {
			return ParallelNode{}, fmt.Errorf("%w: depth %d", ErrEmptyNode, depth)
		}
		set := make([]SerialNode, 0, len(v))
		for _, item := range v {
			node, err := decodeSerial(item, depth+1)
			if err != nil {
				return ParallelNode{}, err
			}
			set = append(set, node)
		}
		return ParallelNode{Set: set}, nil
	default:
		return ParallelNode{}, fmt.Errorf("graph: depth %d: expected object or array, got %T", depth, raw)
	}
}
