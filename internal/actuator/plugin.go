package actuator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayusman/markerpad/internal/plugin"
	"github.com/ayusman/markerpad/internal/zone"
)

// Plugin forwards key transitions to an external plugin process, one
// process per transition.
type Plugin struct {
	*keyboard
	b *pluginBackend
}

// NewPlugin creates an actuator backed by p. The plugin must support the
// press and release actions.
func NewPlugin(exec *plugin.Executor, p *plugin.Plugin) (*Plugin, error) {
	for _, action := range []string{plugin.ActionPress, plugin.ActionRelease} {
		if !p.Manifest.Supports(action) {
			return nil, fmt.Errorf("plugin %s does not support %q", p.Manifest.Name, action)
		}
	}
	b := &pluginBackend{exec: exec, plugin: p}
	return &Plugin{keyboard: newKeyboard(b), b: b}, nil
}

// Tap sends a single tap action when the plugin supports it and falls back
// to press then release otherwise.
func (a *Plugin) Tap(d zone.Zone) error {
	if !a.b.plugin.Manifest.Supports(plugin.ActionTap) {
		if err := a.PressAndHold(d); err != nil {
			return err
		}
		return a.Release(d)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.b.do(plugin.ActionTap, d)
}

type pluginBackend struct {
	exec   *plugin.Executor
	plugin *plugin.Plugin
}

func (b *pluginBackend) send(d zone.Zone, down bool) error {
	action := plugin.ActionRelease
	if down {
		action = plugin.ActionPress
	}
	return b.do(action, d)
}

func (b *pluginBackend) do(action string, d zone.Zone) error {
	key, err := KeyName(d)
	if err != nil {
		return err
	}
	resp, err := b.exec.Execute(context.Background(), b.plugin, &plugin.Request{
		Action:    action,
		Key:       key,
		Direction: d.String(),
		Config:    b.plugin.Manifest.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error == "" {
			return errors.New("plugin refused " + action)
		}
		return errors.New(resp.Error)
	}
	return nil
}

func (b *pluginBackend) close() error { return nil }
