// Package config loads markerpad settings from defaults, an optional config
// file, MARKERPAD_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ayusman/markerpad/internal/actuator"
	"github.com/ayusman/markerpad/internal/capture"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/intent"
	"github.com/ayusman/markerpad/internal/logging"
	"github.com/ayusman/markerpad/internal/zone"
)

// EnvPrefix prefixes every environment override, e.g. MARKERPAD_CAMERA_DEVICE.
const EnvPrefix = "MARKERPAD"

// FileName is the config file base name searched for without --config.
const FileName = "markerpad"

// CameraConfig holds frame source settings.
type CameraConfig struct {
	Device        string        `mapstructure:"device"`
	Width         int           `mapstructure:"width"`
	Height        int           `mapstructure:"height"`
	FPS           int           `mapstructure:"fps"`
	ReadTimeout   time.Duration `mapstructure:"readTimeout"`
	FrameInterval time.Duration `mapstructure:"frameInterval"`
}

// BandConfig is the HSV band, or the name of a stored profile to load.
type BandConfig struct {
	Lower   []int  `mapstructure:"lower"`
	Upper   []int  `mapstructure:"upper"`
	Profile string `mapstructure:"profile"`
}

// DetectorConfig holds the contour filter thresholds.
type DetectorConfig struct {
	MinArea        float64 `mapstructure:"minArea"`
	CircularityMin float64 `mapstructure:"circularityMin"`
	CircularityMax float64 `mapstructure:"circularityMax"`
}

// ZonesConfig places the zones around the frame center.
type ZonesConfig struct {
	HorizontalOffset int  `mapstructure:"horizontalOffset"`
	VerticalOffset   int  `mapstructure:"verticalOffset"`
	HalfWidth        int  `mapstructure:"halfWidth"`
	HalfHeight       int  `mapstructure:"halfHeight"`
	IdleHalfSize     int  `mapstructure:"idleHalfSize"`
	IdleEnabled      bool `mapstructure:"idleEnabled"`
}

// IntentConfig selects the actuation policy.
type IntentConfig struct {
	Mode          string `mapstructure:"mode"`
	Divisor       int    `mapstructure:"divisor"`
	ConfirmFrames int    `mapstructure:"confirmFrames"`
	ReleaseFrames int    `mapstructure:"releaseFrames"`
	StartPaused   bool   `mapstructure:"startPaused"`
}

// ActuatorConfig selects how key events reach the OS.
type ActuatorConfig struct {
	Kind      string        `mapstructure:"kind"`
	Plugin    string        `mapstructure:"plugin"`
	PluginDir string        `mapstructure:"pluginDir"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	StaticDir   string `mapstructure:"staticDir"`
	AllowOrigin string `mapstructure:"allowOrigin"`
	JPEGQuality int    `mapstructure:"jpegQuality"`
}

// StoreConfig locates the profile database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TrayConfig toggles the system tray icon.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the complete application configuration.
type Config struct {
	Camera   CameraConfig   `mapstructure:"camera"`
	Band     BandConfig     `mapstructure:"band"`
	Detector DetectorConfig `mapstructure:"detector"`
	Zones    ZonesConfig    `mapstructure:"zones"`
	Intent   IntentConfig   `mapstructure:"intent"`
	Actuator ActuatorConfig `mapstructure:"actuator"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Tray     TrayConfig     `mapstructure:"tray"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	band := detector.DefaultBand()

	v.SetDefault("camera.device", "0")
	v.SetDefault("camera.width", capture.DefaultWidth)
	v.SetDefault("camera.height", capture.DefaultHeight)
	v.SetDefault("camera.fps", capture.DefaultFPS)
	v.SetDefault("camera.readTimeout", capture.DefaultReadTimeout)
	v.SetDefault("camera.frameInterval", time.Duration(0))

	v.SetDefault("band.lower", []int{int(band.Lower.H), int(band.Lower.S), int(band.Lower.V)})
	v.SetDefault("band.upper", []int{int(band.Upper.H), int(band.Upper.S), int(band.Upper.V)})
	v.SetDefault("band.profile", "")

	v.SetDefault("detector.minArea", detector.DefaultMinArea)
	v.SetDefault("detector.circularityMin", detector.DefaultCircularityMin)
	v.SetDefault("detector.circularityMax", detector.DefaultCircularityMax)

	layout := zone.DefaultLayout()
	v.SetDefault("zones.horizontalOffset", layout.HorizontalOffset)
	v.SetDefault("zones.verticalOffset", layout.VerticalOffset)
	v.SetDefault("zones.halfWidth", layout.HalfWidth)
	v.SetDefault("zones.halfHeight", layout.HalfHeight)
	v.SetDefault("zones.idleHalfSize", layout.IdleHalfSize)
	v.SetDefault("zones.idleEnabled", layout.IdleEnabled)

	v.SetDefault("intent.mode", intent.Hold.String())
	v.SetDefault("intent.divisor", 1)
	v.SetDefault("intent.confirmFrames", 1)
	v.SetDefault("intent.releaseFrames", 1)
	v.SetDefault("intent.startPaused", false)

	v.SetDefault("actuator.kind", actuator.KindNative)
	v.SetDefault("actuator.plugin", "keyboard")
	v.SetDefault("actuator.pluginDir", "~/.markerpad/plugins")
	v.SetDefault("actuator.timeout", 2*time.Second)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.staticDir", "")
	v.SetDefault("server.allowOrigin", "*")
	v.SetDefault("server.jpegQuality", 80)

	v.SetDefault("store.path", "~/.markerpad/markerpad.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)

	v.SetDefault("tray.enabled", false)
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"device":     "camera.device",
	"mode":       "intent.mode",
	"paused":     "intent.startPaused",
	"actuator":   "actuator.kind",
	"plugin":     "actuator.plugin",
	"plugin-dir": "actuator.pluginDir",
	"profile":    "band.profile",
	"addr":       "server.addr",
	"static":     "server.staticDir",
	"db":         "store.path",
	"log-level":  "log.level",
	"log-format": "log.format",
	"tray":       "tray.enabled",
}

// NewFlagSet declares the command-line flags Load understands.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "", "config file (default: markerpad.yaml in ~/.markerpad or the working directory)")
	fs.StringP("device", "d", "0", "camera index, video file or stream URL")
	fs.StringP("mode", "m", "hold", "intent mode: hold or momentary")
	fs.Bool("paused", false, "start with tracking disabled")
	fs.StringP("actuator", "a", actuator.KindNative, "key actuator: native, plugin or log")
	fs.String("plugin", "keyboard", "key plugin name when --actuator=plugin")
	fs.String("plugin-dir", "~/.markerpad/plugins", "plugin directory")
	fs.String("profile", "", "stored color profile to track")
	fs.String("addr", ":5000", "HTTP listen address")
	fs.String("static", "", "directory of static web UI files")
	fs.String("db", "~/.markerpad/markerpad.db", "profile database path")
	fs.String("log-level", "info", "log level: trace, debug, info, warn or error")
	fs.String("log-format", logging.FormatConsole, "log format: console or json")
	fs.Bool("tray", false, "show a system tray icon")
	return fs
}

// Load parses args and merges every configuration source.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("markerpad")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return LoadFlags(fs)
}

// LoadFlags merges defaults, the config file, environment and the already
// parsed flag set. Only flags set explicitly override the other sources.
func LoadFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	file, _ := fs.GetString("config")
	if file == "" {
		file = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".markerpad"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	var err error
	if cfg.Actuator.PluginDir, err = expandHome(cfg.Actuator.PluginDir); err != nil {
		return nil, err
	}
	if cfg.Store.Path, err = expandHome(cfg.Store.Path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	if err := c.CaptureConfig().Validate(); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if c.Camera.FrameInterval < 0 {
		return errors.New("camera: frame interval must not be negative")
	}
	if _, err := c.DetectorConfig(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	if c.Detector.MinArea <= 0 {
		return errors.New("detector: min area must be positive")
	}
	if err := c.Layout().Validate(); err != nil {
		return fmt.Errorf("zones: %w", err)
	}
	if _, err := c.IntentConfig(); err != nil {
		return fmt.Errorf("intent: %w", err)
	}
	switch c.Actuator.Kind {
	case actuator.KindNative, actuator.KindLog:
	case actuator.KindPlugin:
		if c.Actuator.Plugin == "" {
			return errors.New("actuator: plugin name is required")
		}
		if c.Actuator.Timeout <= 0 {
			return errors.New("actuator: timeout must be positive")
		}
	default:
		return fmt.Errorf("actuator: unknown kind %q", c.Actuator.Kind)
	}
	if c.Server.Addr == "" {
		return errors.New("server: addr is required")
	}
	if c.Server.JPEGQuality < 1 || c.Server.JPEGQuality > 100 {
		return fmt.Errorf("server: jpeg quality %d outside 1-100", c.Server.JPEGQuality)
	}
	if c.Store.Path == "" {
		return errors.New("store: path is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// CaptureConfig returns the frame source settings.
func (c *Config) CaptureConfig() capture.Config {
	return capture.Config{
		Device:      c.Camera.Device,
		Width:       c.Camera.Width,
		Height:      c.Camera.Height,
		FPS:         c.Camera.FPS,
		ReadTimeout: c.Camera.ReadTimeout,
	}
}

// ColorBand returns the configured band.
func (c *Config) ColorBand() (detector.ColorBand, error) {
	band, err := detector.BandFromSlices(c.Band.Lower, c.Band.Upper)
	if err != nil {
		return detector.ColorBand{}, err
	}
	return band, band.Validate()
}

// DetectorConfig returns the detector settings with the configured band.
func (c *Config) DetectorConfig() (detector.Config, error) {
	band, err := c.ColorBand()
	if err != nil {
		return detector.Config{}, err
	}
	dc := detector.Config{
		Band:           band,
		MinArea:        c.Detector.MinArea,
		CircularityMin: c.Detector.CircularityMin,
		CircularityMax: c.Detector.CircularityMax,
	}
	return dc, dc.Validate()
}

// Layout returns the zone layout.
func (c *Config) Layout() zone.Layout {
	return zone.Layout{
		HorizontalOffset: c.Zones.HorizontalOffset,
		VerticalOffset:   c.Zones.VerticalOffset,
		HalfWidth:        c.Zones.HalfWidth,
		HalfHeight:       c.Zones.HalfHeight,
		IdleHalfSize:     c.Zones.IdleHalfSize,
		IdleEnabled:      c.Zones.IdleEnabled,
	}
}

// IntentConfig returns the intent machine policy.
func (c *Config) IntentConfig() (intent.Config, error) {
	mode, err := intent.ParseMode(c.Intent.Mode)
	if err != nil {
		return intent.Config{}, err
	}
	ic := intent.Config{
		Mode:          mode,
		Divisor:       c.Intent.Divisor,
		ConfirmFrames: c.Intent.ConfirmFrames,
		ReleaseFrames: c.Intent.ReleaseFrames,
	}
	return ic, ic.Validate()
}

// ActuatorConfig returns the actuator factory settings.
func (c *Config) ActuatorConfig() actuator.Config {
	return actuator.Config{
		Kind:      c.Actuator.Kind,
		Plugin:    c.Actuator.Plugin,
		PluginDir: c.Actuator.PluginDir,
		Timeout:   c.Actuator.Timeout,
	}
}
