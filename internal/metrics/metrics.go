// Package metrics is a minimal facade over an optional metrics backend.
//
// Callers record counters and histogram observations through package-level
// functions; where the numbers go is decided once at startup via SetBackend.
// The default backend discards everything, so library code can instrument
// unconditionally without configuration.
package metrics

import "sync"

// Labels attach dimension values to a sample, e.g. {"status": "ok"}.
type Labels map[string]string

// Backend receives every sample recorded through the package functions.
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta int64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer samples and can push them
// out on demand. Flush blocks until the buffered samples were handed off.
type Flusher interface {
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend routes all subsequent samples to b. A nil b restores the
// discarding default.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to the counter name with the given labels.
func IncCounter(name string, delta int64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one value for the distribution name.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered samples out if the active backend supports it.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, int64, Labels)         {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
