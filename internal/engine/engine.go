// Package engine implements the Execution Engine (spec §4.F): it walks a
// decoded pipeline graph, dispatching each leaf Command to the Module
// Host and threading byte payloads between serial stages, fanning them
// out and back in across parallel ones.
package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/divvun/divvun-pipeline/internal/abi"
	"github.com/divvun/divvun-pipeline/internal/graph"
	"github.com/divvun/divvun-pipeline/internal/module"
	"github.com/divvun/divvun-pipeline/internal/schema"
)

// Runner is the subset of *module.Registry the engine depends on,
// narrowed to ease testing with a fake.
type Runner interface {
	Load(name string) (abi.ModuleMetadata, error)
	Run(moduleName string, params abi.RunParams) (abi.RunResult, error)
}

var _ Runner = (*module.Registry)(nil)

// Engine walks a pipeline graph, dispatching leaf commands through a
// Runner (normally a *module.Registry).
type Engine struct {
	runner      Runner
	emitter     Emitter
	maxParallel int
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithEmitter attaches a diagnostics sink. The default is NopEmitter.
func WithEmitter(e Emitter) Option {
	return func(en *Engine) { en.emitter = e }
}

// WithMaxParallel bounds how many siblings of a single parallel node run
// concurrently. Zero (the default) means unbounded.
func WithMaxParallel(n int) Option {
	return func(en *Engine) { en.maxParallel = n }
}

// New constructs an Engine bound to runner.
func New(runner Runner, opts ...Option) *Engine {
	e := &Engine{runner: runner, emitter: NopEmitter{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the whole pipeline rooted at root against input, returning
// the final stage's output payloads.
func (e *Engine) Run(ctx context.Context, root graph.SerialNode, input [][]byte) ([][]byte, error) {
	return e.runSerial(ctx, "0", root, input)
}

func (e *Engine) runSerial(ctx context.Context, path string, node graph.SerialNode, input [][]byte) ([][]byte, error) {
	if node.Single != nil {
		return e.runCommand(ctx, path, *node.Single, input)
	}

	current := input
	for i, child := range node.Sequence {
		out, err := e.runParallel(ctx, fmt.Sprintf("%s.%d", path, i), child, current)
		if err != nil {
			return nil, err
		}
		current = out
	}
	return current, nil
}

// runParallel runs every sibling in a parallel node concurrently against
// the same input, and concatenates their outputs in declaration order
// regardless of which finished first (spec P-4). A failed
// sibling never cancels the others — every branch always runs to
// completion.
func (e *Engine) runParallel(ctx context.Context, path string, node graph.ParallelNode, input [][]byte) ([][]byte, error) {
	if node.Single != nil {
		return e.runCommand(ctx, path, *node.Single, input)
	}

	n := len(node.Set)
	results := make([][][]byte, n)
	failures := make([]*NodeError, n)

	g := new(errgroup.Group)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	for i, child := range node.Set {
		i, child := i, child
		g.Go(func() error {
			out, err := e.runSerial(ctx, fmt.Sprintf("%s.%d", path, i), child, input)
			if err != nil {
				failures[i] = &NodeError{Index: i, Err: err}
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var failed []*NodeError
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		e.emitter.NodeFailed(path, &ParallelError{Failures: failed})
		return nil, &ParallelError{Failures: failed}
	}

	var out [][]byte
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func (e *Engine) runCommand(ctx context.Context, path string, cmd graph.Command, input [][]byte) ([][]byte, error) {
	e.emitter.NodeStarted(path)

	meta, err := e.runner.Load(cmd.Module)
	if err != nil {
		wrapped := fmt.Errorf("%s: load module %q: %w", path, cmd.Module, err)
		e.emitter.NodeFailed(path, wrapped)
		return nil, wrapped
	}

	if cmdMeta, ok := meta.Command(cmd.Command); ok {
		if err := schema.ValidateParameters(cmdMeta, cmd.Parameters); err != nil {
			wrapped := fmt.Errorf("%s: %s: invalid parameters: %w", path, cmd, err)
			e.emitter.NodeFailed(path, wrapped)
			return nil, wrapped
		}
	}

	result, err := e.runner.Run(cmd.Module, abi.RunParams{
		Command:    cmd.Command,
		Parameters: cmd.Parameters,
		Inputs:     input,
	})
	if err != nil {
		wrapped := fmt.Errorf("%s: %s: %w", path, cmd, err)
		e.emitter.NodeFailed(path, wrapped)
		return nil, wrapped
	}

	e.emitter.NodeSucceeded(path)
	return [][]byte{result.Output}, nil
}
