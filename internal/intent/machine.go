// Package intent turns per-frame zone observations into debounced key
// press, hold and release events.
package intent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/markerpad/internal/zone"
)

// Kind is the type of key action an Event asks for.
type Kind int

const (
	// Press means press and hold the direction until a matching Release.
	Press Kind = iota + 1
	// Release lets go of a held direction.
	Release
	// Tap is a press immediately followed by a release.
	Tap
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Release:
		return "release"
	case Tap:
		return "tap"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a single key action emitted by the Machine.
type Event struct {
	Kind      Kind      `json:"kind"`
	Direction zone.Zone `json:"direction"`
	// Frame is the observation index that produced the event, starting at 1.
	Frame uint64 `json:"frame"`
}

func (e Event) String() string {
	return e.Kind.String() + "(" + e.Direction.String() + ")"
}

// Mode selects the actuation policy.
type Mode int

const (
	// Hold keeps a direction pressed while the marker stays in its zone.
	Hold Mode = iota
	// Momentary taps the direction on qualifying frames.
	Momentary
)

func (m Mode) String() string {
	if m == Momentary {
		return "momentary"
	}
	return "hold"
}

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hold":
		return Hold, nil
	case "momentary":
		return Momentary, nil
	default:
		return Hold, fmt.Errorf("unknown intent mode %q", s)
	}
}

// Config controls the machine's policy and debounce counters.
type Config struct {
	Mode Mode

	// Divisor limits momentary taps to at most one per Divisor frames.
	Divisor int

	// ConfirmFrames is how many consecutive frames a new direction must be
	// observed before it is pressed in hold mode.
	ConfirmFrames int

	// ReleaseFrames is how many consecutive frames outside the held
	// direction are needed before it is released in hold mode.
	ReleaseFrames int
}

// DefaultConfig returns hold mode with no extra debouncing.
func DefaultConfig() Config {
	return Config{
		Mode:          Hold,
		Divisor:       1,
		ConfirmFrames: 1,
		ReleaseFrames: 1,
	}
}

// Validate rejects counters below one.
func (c Config) Validate() error {
	if c.Mode != Hold && c.Mode != Momentary {
		return fmt.Errorf("unknown intent mode %d", int(c.Mode))
	}
	if c.Divisor < 1 {
		return errors.New("divisor must be at least 1")
	}
	if c.ConfirmFrames < 1 || c.ReleaseFrames < 1 {
		return errors.New("confirm and release frames must be at least 1")
	}
	return nil
}

// Machine is the directional intent state. It is not safe for concurrent
// use; the tracking loop is its only owner.
type Machine struct {
	config Config

	held    zone.Zone
	pending zone.Zone
	streak  int
	absent  int

	frame    uint64
	sinceTap int
}

// New creates a Machine in the idle state.
func New(config Config) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &Machine{config: config}
	m.clear()
	return m, nil
}

// Config returns the machine's configuration.
func (m *Machine) Config() Config {
	return m.config
}

// Held returns the direction currently held, or zone.None when idle.
func (m *Machine) Held() zone.Zone {
	return m.held
}

// Observe feeds the zone classified for the current frame and returns the
// key actions to perform, in order. Idle and None are both "no direction";
// a lost marker should be observed as zone.None.
func (m *Machine) Observe(z zone.Zone) []Event {
	m.frame++
	if !z.IsDirectional() {
		z = zone.None
	}

	if m.config.Mode == Momentary {
		return m.observeMomentary(z)
	}
	return m.observeHold(z)
}

func (m *Machine) observeHold(z zone.Zone) []Event {
	if z != zone.None && z == m.held {
		m.pending, m.streak, m.absent = zone.None, 0, 0
		return nil
	}

	if z == zone.None {
		m.pending, m.streak = zone.None, 0
		if m.held == zone.None {
			return nil
		}
		m.absent++
		if m.absent < m.config.ReleaseFrames {
			return nil
		}
		return []Event{m.release()}
	}

	if z == m.pending {
		m.streak++
	} else {
		m.pending, m.streak = z, 1
	}
	// The held direction is let go on its own release count; the new one
	// is pressed only once nothing is held and its streak is confirmed.
	var events []Event
	if m.held != zone.None {
		m.absent++
		if m.absent < m.config.ReleaseFrames {
			return nil
		}
		events = append(events, m.release())
	}
	if m.streak < m.config.ConfirmFrames {
		return events
	}

	m.held = z
	m.pending, m.streak, m.absent = zone.None, 0, 0
	return append(events, Event{Kind: Press, Direction: z, Frame: m.frame})
}

func (m *Machine) observeMomentary(z zone.Zone) []Event {
	if m.sinceTap < m.config.Divisor {
		m.sinceTap++
	}
	if z == zone.None || m.sinceTap < m.config.Divisor {
		return nil
	}
	m.sinceTap = 0
	return []Event{{Kind: Tap, Direction: z, Frame: m.frame}}
}

func (m *Machine) release() Event {
	e := Event{Kind: Release, Direction: m.held, Frame: m.frame}
	m.held = zone.None
	m.absent = 0
	return e
}

// Reset returns the machine to idle and reports the release needed for any
// held direction. It is called when the stream ends or tracking is paused.
func (m *Machine) Reset() []Event {
	var events []Event
	if m.held != zone.None {
		events = append(events, m.release())
	}
	m.clear()
	return events
}

func (m *Machine) clear() {
	m.held = zone.None
	m.pending, m.streak, m.absent = zone.None, 0, 0
	m.sinceTap = m.config.Divisor
}
