// Package runner wires together the bundle loader, module host, and
// execution engine into one end-to-end pipeline run, and owns the
// subsystem destroy order: module registry closes before the allocator
// and resource registry it depends on are allowed to go away.
package runner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/divvun/divvun-pipeline/internal/allocator"
	"github.com/divvun/divvun-pipeline/internal/audit"
	"github.com/divvun/divvun-pipeline/internal/bundle"
	"github.com/divvun/divvun-pipeline/internal/diag"
	"github.com/divvun/divvun-pipeline/internal/engine"
	"github.com/divvun/divvun-pipeline/internal/module"
)

// Config configures one pipeline run.
type Config struct {
	// ModuleSearchPaths are tried in order when resolving a command's
	// module name to a shared library.
	ModuleSearchPaths []string
	// AllocatorBacking selects the Host Allocator's backing strategy.
	AllocatorBacking allocator.Strategy
	// MaxParallel bounds concurrent siblings within a single parallel
	// node. Zero means unbounded.
	MaxParallel int
	// Sink receives diagnostic events as the run progresses. Nil means
	// no diagnostics are emitted.
	Sink diag.Sink
	// Ledger, if set, additionally records node transitions and the
	// final live-handle count to a durable audit database.
	Ledger *audit.Ledger
	// Backend overrides the Module Host's backend, normally
	// module.DLBackend{}. Tests substitute an in-process fake.
	Backend module.Backend
}

// Run loads bundlePath as a .zpipe archive, executes its pipeline
// against the bytes read from input, and streams the final stage's
// first output buffer to output. A parallel root stage with more than
// one sibling produces more than one output buffer; only the first is
// ever written to the caller.
func Run(ctx context.Context, cfg Config, bundlePath string, input io.Reader, output io.Writer) error {
	b, err := bundle.Load(bundlePath)
	if err != nil {
		return err
	}

	alloc, err := allocator.New(cfg.AllocatorBacking)
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}
	// Destroy order: the module registry (and the modules it holds open)
	// must be closed before the allocator they were handed memory from.
	// Deferred in reverse of that requirement so LIFO unwinding gets it
	// right.
	defer alloc.Close()

	backend := cfg.Backend
	if backend == nil {
		backend = module.DLBackend{}
	}
	registry := module.NewRegistry(backend, cfg.ModuleSearchPaths, alloc, b.Resources)
	defer registry.Close()

	runID := newRunID()
	sink := cfg.Sink
	if cfg.Ledger != nil {
		auditSink := cfg.Ledger.ForRun(runID)
		if sink != nil {
			sink = diag.MultiSink{Sinks: []diag.Sink{sink, auditSink}}
		} else {
			sink = auditSink
		}
	}
	recorder := diag.NewRecorder(sink)

	eng := engine.New(registry, engine.WithEmitter(recorder), engine.WithMaxParallel(cfg.MaxParallel))

	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("runner: read input: %w", err)
	}

	results, err := eng.Run(ctx, b.Pipeline.Root, [][]byte{data})
	if cfg.Ledger != nil {
		_ = cfg.Ledger.RecordLiveHandles(runID, registry.LiveHandles())
	}
	if err != nil {
		return fmt.Errorf("runner: %w", err)
	}

	if len(results) > 0 {
		if _, err := output.Write(results[0]); err != nil {
			return fmt.Errorf("runner: write output: %w", err)
		}
	}
	return nil
}

func newRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "run-unknown"
	}
	return hex.EncodeToString(b[:])
}
