package diag

import "time"

// Recorder adapts a Sink to the narrower interfaces the engine and
// module host each need, stamping every event with a timestamp. It
// satisfies engine.Emitter without internal/diag importing
// internal/engine — the method set matches structurally.
type Recorder struct {
	sink Sink
}

// NewRecorder wraps sink. A nil sink is valid and discards every event.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

func (r *Recorder) emit(e Event) {
	if r.sink == nil {
		return
	}
	e.Time = time.Now()
	r.sink.Emit(e)
}

// NodeStarted, NodeSucceeded, and NodeFailed satisfy engine.Emitter.
func (r *Recorder) NodeStarted(path string) {
	r.emit(Event{Kind: KindNodeStarted, Path: path})
}

func (r *Recorder) NodeSucceeded(path string) {
	r.emit(Event{Kind: KindNodeSucceeded, Path: path})
}

func (r *Recorder) NodeFailed(path string, err error) {
	r.emit(Event{Kind: KindNodeFailed, Path: path, Error: err.Error()})
}

// ModuleLoaded and ModuleLoadFailed report module load outcomes.
// internal/module carries no diag dependency and the runner does not call
// them, so a pipeline run's event stream contains no module events.
func (r *Recorder) ModuleLoaded(name string) {
	r.emit(Event{Kind: KindModuleLoaded, Module: name})
}

func (r *Recorder) ModuleLoadFailed(name string, err error) {
	r.emit(Event{Kind: KindModuleLoadFailed, Module: name, Error: err.Error()})
}

// ResourceMaterialized and ResourceReleased report resource lifecycle
// transitions. Neither the runner nor the resource registry calls them,
// so a pipeline run's event stream contains no resource events.
func (r *Recorder) ResourceMaterialized(name string) {
	r.emit(Event{Kind: KindResourceMaterialized, Resource: name})
}

func (r *Recorder) ResourceReleased(name string) {
	r.emit(Event{Kind: KindResourceReleased, Resource: name})
}
