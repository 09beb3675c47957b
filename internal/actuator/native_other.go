//go:build !linux && !windows

package actuator

// Native is unavailable on this platform; use the plugin or log actuator.
type Native struct {
	*keyboard
}

// NewNative always returns ErrUnsupported.
func NewNative(name string) (*Native, error) {
	return nil, ErrUnsupported
}
