package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Sink receives diagnostic events. Multiple goroutines may call Emit
// concurrently — every parallel branch of the pipeline runs on its own
// goroutine.
type Sink interface {
	Emit(Event)
}

// NDJSONSink writes one JSON object per line, suitable for piping to a
// log aggregator or another process.
type NDJSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONSink wraps w.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return &NDJSONSink{enc: json.NewEncoder(w)}
}

func (s *NDJSONSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A write failure here has nowhere useful to go: diagnostics must
	// never make a pipeline run fail.
	_ = s.enc.Encode(e)
}

var (
	styleStarted   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleSucceeded = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleFailed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleInfo      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// HumanSink renders events as short, colored lines for an interactive
// terminal. Colors are disabled automatically when w is not a TTY.
type HumanSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewHumanSink wraps w, auto-detecting color support.
func NewHumanSink(w io.Writer) *HumanSink {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &HumanSink{w: w, color: color}
}

func (s *HumanSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.format(e)
	fmt.Fprintln(s.w, line)
}

func (s *HumanSink) format(e Event) string {
	switch e.Kind {
	case KindNodeStarted:
		return s.style(styleStarted, fmt.Sprintf("▶ %s", e.Path))
	case KindNodeSucceeded:
		return s.style(styleSucceeded, fmt.Sprintf("✓ %s", e.Path))
	case KindNodeFailed:
		return s.style(styleFailed, fmt.Sprintf("✗ %s: %s", e.Path, e.Error))
	case KindModuleLoaded:
		return s.style(styleInfo, fmt.Sprintf("module loaded: %s", e.Module))
	case KindModuleLoadFailed:
		return s.style(styleFailed, fmt.Sprintf("module load failed: %s: %s", e.Module, e.Error))
	case KindResourceMaterialized:
		return s.style(styleInfo, fmt.Sprintf("resource materialized: %s", e.Resource))
	case KindResourceReleased:
		return s.style(styleInfo, fmt.Sprintf("resource released: %s", e.Resource))
	default:
		return s.style(styleInfo, string(e.Kind))
	}
}

func (s *HumanSink) style(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

// MultiSink fans one event out to several sinks, e.g. NDJSON to a log
// file and human output to the terminal at once.
type MultiSink struct {
	Sinks []Sink
}

func (m MultiSink) Emit(e Event) {
	for _, s := range m.Sinks {
		s.Emit(e)
	}
}
