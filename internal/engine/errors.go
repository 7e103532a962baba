package engine

import (
	"fmt"
	"strings"
)

// NodeError wraps a failure from one parallel branch with its index in
// declaration order.
type NodeError struct {
	Index int
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("branch %d failed: %v", e.Index, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// ParallelError aggregates every failed sibling in a parallel set. The
// engine never cancels siblings on a first failure (spec: a parallel
// node always awaits every branch), so a parallel node can fail with
// more than one underlying cause at once.
type ParallelError struct {
	Failures []*NodeError
}

func (e *ParallelError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of the parallel branches failed", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %v", f)
	}
	return b.String()
}

func (e *ParallelError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
