package actuator

import (
	"sync"

	"github.com/ayusman/markerpad/internal/zone"
)

// Call is one method invocation seen by a Recorder.
type Call struct {
	Op        string
	Direction zone.Zone
}

func (c Call) String() string {
	if c.Direction == zone.None {
		return c.Op
	}
	return c.Op + "(" + c.Direction.String() + ")"
}

// Recorder is a KeyActuator that records every call verbatim without
// de-duplicating. It stands in for a real keyboard in tests.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every later call return err after recording it.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *Recorder) record(op string, d zone.Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Direction: d})
	return r.err
}

func (r *Recorder) PressAndHold(d zone.Zone) error { return r.record("press", d) }
func (r *Recorder) Release(d zone.Zone) error      { return r.record("release", d) }
func (r *Recorder) ReleaseAll() error              { return r.record("releaseAll", zone.None) }
func (r *Recorder) Close() error                   { return r.record("close", zone.None) }

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Strings returns the recorded calls formatted like "press(left)".
func (r *Recorder) Strings() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
