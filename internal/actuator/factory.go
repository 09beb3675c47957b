package actuator

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/markerpad/internal/plugin"
)

// Kinds of actuator New can build.
const (
	KindNative = "native"
	KindPlugin = "plugin"
	KindLog    = "log"
)

// DeviceName is the name of the uinput device the native actuator creates.
const DeviceName = "markerpad virtual keyboard"

// Config selects and configures the actuator.
type Config struct {
	Kind      string
	Plugin    string
	PluginDir string
	Timeout   time.Duration
}

// New builds the configured actuator.
func New(cfg Config, log zerolog.Logger) (KeyActuator, error) {
	switch cfg.Kind {
	case KindNative:
		a, err := NewNative(DeviceName)
		if err != nil {
			return nil, err
		}
		return a, nil
	case KindLog:
		return NewLog(log), nil
	case KindPlugin:
		mgr := plugin.NewManager(cfg.PluginDir)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins in %s: %w", cfg.PluginDir, err)
		}
		p, err := mgr.Get(cfg.Plugin)
		if err != nil {
			return nil, fmt.Errorf("%s in %s: %w", cfg.Plugin, cfg.PluginDir, err)
		}
		log.Debug().Str("plugin", p.Manifest.Name).Str("version", p.Manifest.Version).Msg("using key plugin")
		a, err := NewPlugin(plugin.NewExecutor(cfg.Timeout), p)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown actuator kind %q", cfg.Kind)
	}
}
