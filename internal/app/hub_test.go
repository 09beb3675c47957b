package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishAndLatest(t *testing.T) {
	h := NewHub[int]()

	_, ok := h.Latest()
	assert.False(t, ok)

	ch, unsubscribe := h.Subscribe(2)
	defer unsubscribe()
	assert.Equal(t, 1, h.Subscribers())

	h.Publish(1)
	h.Publish(2)
	assert.Equal(t, 1, <-ch)
	assert.Equal(t, 2, <-ch)

	v, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestHub_SlowSubscriberDropsValues(t *testing.T) {
	h := NewHub[string]()
	ch, unsubscribe := h.Subscribe(1)
	defer unsubscribe()

	h.Publish("a")
	h.Publish("b")
	h.Publish("c")

	assert.Equal(t, "a", <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %q", v)
	default:
	}
	latest, _ := h.Latest()
	assert.Equal(t, "c", latest)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub[int]()
	ch, unsubscribe := h.Subscribe(1)

	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())

	h.Publish(5)
}

func TestHub_Close(t *testing.T) {
	h := NewHub[int]()
	ch, unsubscribe := h.Subscribe(1)

	h.Close()
	h.Close()
	_, ok := <-ch
	assert.False(t, ok)
	unsubscribe()

	late, _ := h.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	h.Publish(1)
	_, ok = h.Latest()
	assert.False(t, ok)
}
