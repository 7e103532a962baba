package module

import (
	"fmt"
	"strings"
)

// PathAttempt records one failed attempt to load a module from a
// candidate search-path entry.
type PathAttempt struct {
	Path string
	Err  error
}

// LoadError aggregates every failed attempt across a module's full
// search path, so a missing module reports every place the host looked
// instead of only the last one.
type LoadError struct {
	Name     string
	Attempts []PathAttempt
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %q: not found on search path (%d candidates tried)", e.Name, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %v", a.Path, a.Err)
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
