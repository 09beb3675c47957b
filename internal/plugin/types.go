// Package plugin runs external key-injection helpers that speak a small JSON
// protocol over stdin and stdout.
package plugin

import "encoding/json"

// Actions a key plugin understands.
const (
	ActionPress   = "press"
	ActionRelease = "release"
	ActionTap     = "tap"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Actions     []string        `json:"actions"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is written to the plugin's stdin as a single JSON document.
type Request struct {
	Action    string          `json:"action"`
	Key       string          `json:"key"`
	Direction string          `json:"direction,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response is read back from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
