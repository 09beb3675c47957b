package api

import (
	"net/http"

	"github.com/ayusman/markerpad/internal/app"
)

// Tracker is the part of the tracking loop the control endpoints use.
type Tracker interface {
	Status() app.Status
	SetEnabled(enabled bool)
}

// TrackingHandler serves GET /api/status and PUT /api/enabled.
type TrackingHandler struct {
	tracker Tracker
}

// NewTrackingHandler creates a TrackingHandler for t.
func NewTrackingHandler(t Tracker) *TrackingHandler {
	return &TrackingHandler{tracker: t}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// Status handles GET /api/status.
func (h *TrackingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.Status())
}

// Enabled handles GET and PUT /api/enabled.
func (h *TrackingHandler) Enabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enabledRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.tracker.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.tracker.Status().Enabled})
}
