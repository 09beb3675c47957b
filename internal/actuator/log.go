package actuator

import (
	"github.com/rs/zerolog"

	"github.com/ayusman/markerpad/internal/zone"
)

// Log is a dry-run actuator that writes the key it would press to the log.
type Log struct {
	*keyboard
}

// NewLog creates a dry-run actuator.
func NewLog(log zerolog.Logger) *Log {
	return &Log{newKeyboard(logBackend{log: log.With().Str("actuator", "log").Logger()})}
}

type logBackend struct {
	log zerolog.Logger
}

func (b logBackend) send(d zone.Zone, down bool) error {
	key, err := KeyName(d)
	if err != nil {
		return err
	}
	state := "up"
	if down {
		state = "down"
	}
	b.log.Info().Str("key", key).Str("state", state).Msg(d.String())
	return nil
}

func (b logBackend) close() error { return nil }
