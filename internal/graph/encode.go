package graph

import "encoding/json"

// Encode serializes a Pipeline back to its declarative JSON form, the
// inverse of Decode. Round-tripping Decode(Encode(p)) yields a
// structurally equal graph.
func Encode(p *Pipeline) ([]byte, error) {
	return json.Marshal(encodeSerial(p.Root))
}

func encodeCommand(c Command) map[string]any {
	obj := map[string]any{
		"module":  c.Module,
		"command": c.Command,
	}
	if len(c.Parameters) > 0 {
		obj["parameters"] = c.Parameters
	}
	return obj
}

func encodeSerial(n SerialNode) any {
	if n.Single != nil {
		return encodeCommand(*n.Single)
	}
	out := make([]any, 0, len(n.Sequence))
	for _, child := range n.Sequence {
		out = append(out, encodeParallel(child))
	}
	return out
}

func encodeParallel(n ParallelNode) any {
	if n.Single != nil {
		return encodeCommand(*n.Single)
	}
	out := make([]any, 0, len(n.Set))
	for _, child := range n.Set {
		out = append(out, encodeSerial(child))
	}
	return out
}
