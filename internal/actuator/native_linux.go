//go:build linux

package actuator

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ayusman/markerpad/internal/zone"
)

// UinputPath is the uinput control device.
const UinputPath = "/dev/uinput"

// linux/uinput.h and linux/input-event-codes.h
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565

	evSyn     = 0x00
	evKey     = 0x01
	synReport = 0

	busUSB = 0x03

	keyUp    = 103
	keyLeft  = 105
	keyRight = 106
	keyDown  = 108
)

var linuxKeys = map[zone.Zone]uint16{
	zone.Left:  keyLeft,
	zone.Right: keyRight,
	zone.Up:    keyUp,
	zone.Down:  keyDown,
}

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Native is a virtual keyboard created through uinput.
type Native struct {
	*keyboard
}

// NewNative creates a virtual keyboard device named name that can emit the
// four arrow keys. The caller needs write access to /dev/uinput.
func NewNative(name string) (*Native, error) {
	fd, err := unix.Open(UinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", UinputPath, err)
	}
	u := &uinput{fd: fd}
	if err := u.setup(name); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &Native{newKeyboard(u)}, nil
}

type uinput struct {
	fd int
}

func (u *uinput) setup(name string) error {
	if err := unix.IoctlSetInt(u.fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("enable key events: %w", err)
	}
	for _, code := range linuxKeys {
		if err := unix.IoctlSetInt(u.fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("enable key %d: %w", code, err)
		}
	}

	setup := uinputSetup{ID: inputID{Bustype: busUSB, Vendor: 0x1209, Product: 0x4d50, Version: 1}}
	copy(setup.Name[:len(setup.Name)-1], name)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(u.fd), uiDevSetup, uintptr(unsafe.Pointer(&setup))); errno != 0 {
		return fmt.Errorf("setup device: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(u.fd), uiDevCreate, 0); errno != 0 {
		return fmt.Errorf("create device: %w", errno)
	}
	return nil
}

func (u *uinput) emit(typ, code uint16, value int32) error {
	ev := inputEvent{Type: typ, Code: code, Value: value}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	_, err := unix.Write(u.fd, buf)
	return err
}

func (u *uinput) send(d zone.Zone, down bool) error {
	code, ok := linuxKeys[d]
	if !ok {
		return ErrNotDirectional
	}
	var value int32
	if down {
		value = 1
	}
	if err := u.emit(evKey, code, value); err != nil {
		return err
	}
	return u.emit(evSyn, synReport, 0)
}

func (u *uinput) close() error {
	unix.Syscall(unix.SYS_IOCTL, uintptr(u.fd), uiDevDestroy, 0)
	return unix.Close(u.fd)
}
