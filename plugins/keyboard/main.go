// Package main is a keyboard plugin that injects key events through xdotool.
// It reads one request on stdin and writes one response on stdout.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request mirrors the executor's request document.
type Request struct {
	Action    string          `json:"action"`
	Key       string          `json:"key"`
	Direction string          `json:"direction,omitempty"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// Response mirrors the executor's response document.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional plugin configuration from plugin.json.
type Config struct {
	// Window restricts injection to a window id; empty means the focused one.
	Window string `json:"window"`
}

// keyNames maps direction key names to X keysyms.
var keyNames = map[string]string{
	"left":  "Left",
	"right": "Right",
	"up":    "Up",
	"down":  "Down",
}

var xdotoolCommand = map[string]string{
	"press":   "keydown",
	"release": "keyup",
	"tap":     "key",
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("decode request: %w", err))
		return
	}
	writeResponse(handle(req))
}

func handle(req Request) error {
	args, err := buildArgs(req)
	if err != nil {
		return err
	}
	out, err := exec.Command("xdotool", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("xdotool %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// buildArgs converts a request to xdotool arguments.
func buildArgs(req Request) ([]string, error) {
	cmd, ok := xdotoolCommand[req.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s", req.Action)
	}
	if req.Key == "" {
		return nil, errors.New("key is required")
	}

	key := req.Key
	if sym, ok := keyNames[strings.ToLower(key)]; ok {
		key = sym
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	args := []string{cmd}
	if cfg.Window != "" {
		args = append(args, "--window", cfg.Window)
	}
	return append(args, key), nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
