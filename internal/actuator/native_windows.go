//go:build windows

package actuator

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/ayusman/markerpad/internal/zone"
)

const (
	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
)

var windowsKeys = map[zone.Zone]byte{
	zone.Left:  0x25, // VK_LEFT
	zone.Up:    0x26, // VK_UP
	zone.Right: 0x27, // VK_RIGHT
	zone.Down:  0x28, // VK_DOWN
}

// Native injects arrow keys with user32 keybd_event.
type Native struct {
	*keyboard
}

// NewNative loads user32. name is unused on Windows.
func NewNative(name string) (*Native, error) {
	proc := windows.NewLazySystemDLL("user32.dll").NewProc("keybd_event")
	if err := proc.Find(); err != nil {
		return nil, fmt.Errorf("load keybd_event: %w", err)
	}
	return &Native{newKeyboard(&keybd{proc: proc})}, nil
}

type keybd struct {
	proc *windows.LazyProc
}

func (k *keybd) send(d zone.Zone, down bool) error {
	vk, ok := windowsKeys[d]
	if !ok {
		return ErrNotDirectional
	}
	flags := uintptr(keyeventfExtendedKey)
	if !down {
		flags |= keyeventfKeyUp
	}
	// keybd_event returns nothing useful
	_, _, _ = k.proc.Call(uintptr(vk), 0, flags, 0)
	return nil
}

func (k *keybd) close() error { return nil }
