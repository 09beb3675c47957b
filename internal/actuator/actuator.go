// Package actuator turns directional intent events into simulated key
// presses.
package actuator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/zone"
)

var (
	// ErrUnsupported is returned when no key injection backend exists for
	// the current platform.
	ErrUnsupported = errors.New("key injection not supported on this platform")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("actuator closed")

	// ErrNotDirectional is returned for zones that have no key.
	ErrNotDirectional = errors.New("zone has no key")
)

// KeyActuator presses and releases the key bound to a direction.
//
// PressAndHold of a direction that is already down and Release of one that
// is up are no-ops. ReleaseAll lifts every key the actuator still holds, and
// Close releases everything before freeing the backend.
type KeyActuator interface {
	PressAndHold(d zone.Zone) error
	Release(d zone.Zone) error
	ReleaseAll() error
	Close() error
}

// Tapper is implemented by actuators with a native single-shot key press.
type Tapper interface {
	Tap(d zone.Zone) error
}

// Apply performs one intent event on a.
func Apply(a KeyActuator, e intent.Event) error {
	switch e.Kind {
	case intent.Press:
		return a.PressAndHold(e.Direction)
	case intent.Release:
		return a.Release(e.Direction)
	case intent.Tap:
		if t, ok := a.(Tapper); ok {
			return t.Tap(e.Direction)
		}
		if err := a.PressAndHold(e.Direction); err != nil {
			return err
		}
		return a.Release(e.Direction)
	default:
		return fmt.Errorf("unknown event kind %v", e.Kind)
	}
}

// KeyName returns the arrow key name for a direction.
func KeyName(d zone.Zone) (string, error) {
	switch d {
	case zone.Left:
		return "Left", nil
	case zone.Right:
		return "Right", nil
	case zone.Up:
		return "Up", nil
	case zone.Down:
		return "Down", nil
	default:
		return "", fmt.Errorf("%s: %w", d, ErrNotDirectional)
	}
}

// directions is the order ReleaseAll lifts keys in.
var directions = [...]zone.Zone{zone.Left, zone.Right, zone.Up, zone.Down}

// backend sends raw key transitions.
type backend interface {
	send(d zone.Zone, down bool) error
	close() error
}

// keyboard tracks which keys are down on top of a backend so every
// implementation shares the same hold semantics.
type keyboard struct {
	mu     sync.Mutex
	b      backend
	held   map[zone.Zone]bool
	closed bool
}

func newKeyboard(b backend) *keyboard {
	return &keyboard{b: b, held: make(map[zone.Zone]bool)}
}

func (k *keyboard) PressAndHold(d zone.Zone) error {
	if !d.IsDirectional() {
		return fmt.Errorf("press %s: %w", d, ErrNotDirectional)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return ErrClosed
	}
	if k.held[d] {
		return nil
	}
	if err := k.b.send(d, true); err != nil {
		return fmt.Errorf("press %s: %w", d, err)
	}
	k.held[d] = true
	return nil
}

func (k *keyboard) Release(d zone.Zone) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return ErrClosed
	}
	return k.release(d)
}

func (k *keyboard) release(d zone.Zone) error {
	if !k.held[d] {
		return nil
	}
	// forget the key even if the backend failed so a retry cannot stick
	delete(k.held, d)
	if err := k.b.send(d, false); err != nil {
		return fmt.Errorf("release %s: %w", d, err)
	}
	return nil
}

func (k *keyboard) ReleaseAll() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	return k.releaseAll()
}

func (k *keyboard) releaseAll() error {
	var errs []error
	for _, d := range directions {
		if err := k.release(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (k *keyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	err := k.releaseAll()
	k.closed = true
	return errors.Join(err, k.b.close())
}

// Held returns the directions currently down in release order.
func (k *keyboard) Held() []zone.Zone {
	k.mu.Lock()
	defer k.mu.Unlock()

	var out []zone.Zone
	for _, d := range directions {
		if k.held[d] {
			out = append(out, d)
		}
	}
	return out
}
