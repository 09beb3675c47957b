package overlay

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/zone"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "zone: none", Label(Scene{}))
	assert.Equal(t, "zone: left  holding: left", Label(Scene{Zone: zone.Left, Held: zone.Left}))
	assert.Equal(t, "paused", Label(Scene{Zone: zone.Up, Paused: true}))
}

func TestRender(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	center := image.Pt(320, 240)
	Render(&frame, Scene{
		Regions: zone.DefaultLayout().Regions(center),
		Marker:  &detector.Marker{Center: image.Pt(170, 240), Radius: 30},
		Zone:    zone.Left,
		Held:    zone.Left,
	})

	// left box edge is drawn in the active color (BGR green)
	assert.Equal(t, uint8(255), frame.GetVecbAt(140, 120)[1])
	assert.Equal(t, uint8(0), frame.GetVecbAt(140, 120)[2])

	// right box edge stays white
	v := frame.GetVecbAt(140, 520)
	assert.Equal(t, []uint8{255, 255, 255}, []uint8{v[0], v[1], v[2]})

	// marker center dot is red in BGR
	v = frame.GetVecbAt(240, 170)
	assert.Equal(t, []uint8{0, 0, 255}, []uint8{v[0], v[1], v[2]})
}

func TestEncode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gocv test in short mode")
	}

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := Encode(frame, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}), "missing JPEG SOI marker")

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = Encode(empty, 90)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}
