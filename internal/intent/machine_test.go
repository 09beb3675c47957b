package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/markerpad/internal/zone"
)

func newMachine(t *testing.T, mutate func(*Config)) *Machine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

// feed observes every zone and returns all events as strings.
func feed(m *Machine, zones ...zone.Zone) []string {
	var out []string
	for _, z := range zones {
		for _, e := range m.Observe(z) {
			out = append(out, e.String())
		}
	}
	return out
}

func TestHold_PressOnceWhileInZone(t *testing.T) {
	for _, n := range []int{1, 2, 10, 100} {
		m := newMachine(t, nil)
		zones := make([]zone.Zone, n)
		for i := range zones {
			zones[i] = zone.Left
		}
		assert.Equal(t, []string{"press(left)"}, feed(m, zones...), "n=%d", n)
		assert.Equal(t, zone.Left, m.Held())
	}
}

func TestHold_ReleaseOnExit(t *testing.T) {
	m := newMachine(t, nil)
	feed(m, zone.Left)

	assert.Equal(t, []string{"release(left)"}, feed(m, zone.None))
	assert.Equal(t, zone.None, m.Held())

	// next direction is a plain press, no duplicate release
	assert.Equal(t, []string{"press(right)"}, feed(m, zone.Right))
}

func TestHold_SwitchDirection(t *testing.T) {
	m := newMachine(t, nil)
	feed(m, zone.Up)

	events := m.Observe(zone.Down)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: Release, Direction: zone.Up, Frame: 2}, events[0])
	assert.Equal(t, Event{Kind: Press, Direction: zone.Down, Frame: 2}, events[1])
	assert.Equal(t, zone.Down, m.Held())
}

func TestHold_IdleZoneActsAsNone(t *testing.T) {
	m := newMachine(t, nil)

	assert.Empty(t, feed(m, zone.Idle, zone.None, zone.Idle))
	feed(m, zone.Right)
	assert.Equal(t, []string{"release(right)"}, feed(m, zone.Idle))
	assert.Empty(t, feed(m, zone.Idle))
}

func TestHold_MarkerLossReleasesOnce(t *testing.T) {
	m := newMachine(t, nil)
	feed(m, zone.Up)

	got := feed(m, zone.None, zone.None, zone.None, zone.None, zone.None)
	assert.Equal(t, []string{"release(up)"}, got)
}

func TestHold_NeverHoldsTwoDirections(t *testing.T) {
	m := newMachine(t, nil)
	seq := []zone.Zone{zone.Left, zone.Right, zone.Up, zone.Up, zone.Down, zone.None, zone.Left, zone.Idle}

	held := map[zone.Zone]bool{}
	for _, z := range seq {
		for _, e := range m.Observe(z) {
			switch e.Kind {
			case Press:
				held[e.Direction] = true
			case Release:
				require.True(t, held[e.Direction], "release of %s without press", e.Direction)
				delete(held, e.Direction)
			}
			assert.LessOrEqual(t, len(held), 1)
		}
	}
	assert.Empty(t, held)
}

func TestHold_ConfirmFrames(t *testing.T) {
	m := newMachine(t, func(c *Config) { c.ConfirmFrames = 3 })

	assert.Empty(t, feed(m, zone.Left, zone.Left))
	assert.Equal(t, []string{"press(left)"}, feed(m, zone.Left))

	// an interrupted streak starts over
	m = newMachine(t, func(c *Config) { c.ConfirmFrames = 2 })
	assert.Empty(t, feed(m, zone.Left, zone.None, zone.Left, zone.Right))
	assert.Equal(t, []string{"press(right)"}, feed(m, zone.Right))
}

func TestHold_ReleaseFrames(t *testing.T) {
	m := newMachine(t, func(c *Config) { c.ReleaseFrames = 3 })
	feed(m, zone.Down)

	// a brief occlusion does not release
	assert.Empty(t, feed(m, zone.None, zone.None, zone.Down))
	assert.Equal(t, zone.Down, m.Held())

	assert.Empty(t, feed(m, zone.None, zone.None))
	assert.Equal(t, []string{"release(down)"}, feed(m, zone.None))
	assert.Empty(t, feed(m, zone.None))
}

func TestHold_SwitchWithConfirmFrames(t *testing.T) {
	tests := []struct {
		name    string
		confirm int
		release int
		want    [][]string
	}{
		{
			name:    "release now press later",
			confirm: 3,
			release: 1,
			want: [][]string{
				{"release(left)"},
				nil,
				{"press(right)"},
			},
		},
		{
			name:    "press waits for release",
			confirm: 1,
			release: 3,
			want: [][]string{
				nil,
				nil,
				{"release(left)", "press(right)"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(t, func(c *Config) {
				c.ConfirmFrames = tt.confirm
				c.ReleaseFrames = tt.release
			})
			for i := 0; i < tt.confirm; i++ {
				feed(m, zone.Left)
			}
			require.Equal(t, zone.Left, m.Held())

			for i, want := range tt.want {
				assert.Equal(t, want, feed(m, zone.Right), "right #%d", i+1)
			}
			assert.Equal(t, zone.Right, m.Held())
		})
	}
}

func TestHold_SwitchBackBeforeRelease(t *testing.T) {
	m := newMachine(t, func(c *Config) { c.ReleaseFrames = 3 })
	feed(m, zone.Left)

	assert.Empty(t, feed(m, zone.Right, zone.Right, zone.Left))
	assert.Equal(t, zone.Left, m.Held())
	assert.Empty(t, feed(m, zone.Right, zone.Right))
	assert.Equal(t, []string{"release(left)", "press(right)"}, feed(m, zone.Right))
}

func TestMomentary_TapEveryFrame(t *testing.T) {
	m := newMachine(t, func(c *Config) { c.Mode = Momentary })

	got := feed(m, zone.Left, zone.Left, zone.None, zone.Up, zone.Idle)
	assert.Equal(t, []string{"tap(left)", "tap(left)", "tap(up)"}, got)
	assert.Equal(t, zone.None, m.Held())
}

func TestMomentary_Divisor(t *testing.T) {
	m := newMachine(t, func(c *Config) {
		c.Mode = Momentary
		c.Divisor = 3
	})

	var frames []uint64
	for i := 0; i < 10; i++ {
		for _, e := range m.Observe(zone.Right) {
			frames = append(frames, e.Frame)
		}
	}
	assert.Equal(t, []uint64{1, 4, 7, 10}, frames)
}

func TestMomentary_InstancesAreIndependent(t *testing.T) {
	cfg := func(c *Config) {
		c.Mode = Momentary
		c.Divisor = 2
	}
	a := newMachine(t, cfg)
	b := newMachine(t, cfg)

	assert.Equal(t, []string{"tap(left)"}, feed(a, zone.Left))
	assert.Empty(t, feed(a, zone.Left))
	// b has its own counter
	assert.Equal(t, []string{"tap(up)"}, feed(b, zone.Up))
}

func TestReset(t *testing.T) {
	m := newMachine(t, nil)
	assert.Empty(t, m.Reset())

	feed(m, zone.Left)
	events := m.Reset()
	require.Len(t, events, 1)
	assert.Equal(t, Release, events[0].Kind)
	assert.Equal(t, zone.Left, events[0].Direction)
	assert.Equal(t, zone.None, m.Held())

	assert.Empty(t, m.Reset())
	assert.Equal(t, []string{"press(left)"}, feed(m, zone.Left))
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Divisor = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.ConfirmFrames = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Mode = Mode(7)
	_, err := New(bad)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Momentary")
	require.NoError(t, err)
	assert.Equal(t, Momentary, mode)

	mode, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Hold, mode)

	_, err = ParseMode("toggle")
	assert.Error(t, err)
}

func TestEvent_JSON(t *testing.T) {
	data, err := json.Marshal(Event{Kind: Press, Direction: zone.Left, Frame: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"press","direction":"left","frame":3}`, string(data))
}
