package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/store"
)

// BandSetter applies a color band to the running detector.
type BandSetter interface {
	SetBand(band detector.ColorBand) error
}

// ProfileHandler handles HTTP requests for color profile resources.
type ProfileHandler struct {
	store   *store.Store
	tracker BandSetter
}

// NewProfileHandler creates a ProfileHandler. tracker may be nil, in which
// case activation only records the active profile.
func NewProfileHandler(s *store.Store, tracker BandSetter) *ProfileHandler {
	return &ProfileHandler{store: s, tracker: tracker}
}

// ServeHTTP routes:
//
//	GET, POST          /api/profiles
//	GET, PUT, DELETE   /api/profiles/{id}
//	POST               /api/profiles/{id}/activate
//	GET, DELETE        /api/profiles/{id}/samples
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch {
	case sub == "activate" && r.Method == http.MethodPost:
		h.activate(w, r, id)
	case sub == "samples" && r.Method == http.MethodGet:
		h.samples(w, r, id)
	case sub == "samples" && r.Method == http.MethodDelete:
		h.clearSamples(w, r, id)
	case sub == "activate" || sub == "samples":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	case sub != "":
		writeError(w, http.StatusNotFound, "Not found")
	case r.Method == http.MethodGet:
		h.get(w, r, id)
	case r.Method == http.MethodPut:
		h.update(w, r, id)
	case r.Method == http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type profileRequest struct {
	Name string              `json:"name"`
	Band *detector.ColorBand `json:"band"`
}

type profileResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Band      detector.ColorBand `json:"band"`
	Active    bool               `json:"active"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toResponse(p *store.Profile, activeID string) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Band:      p.Band,
		Active:    p.ID == activeID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *ProfileHandler) activeID() string {
	id, _ := h.store.Settings().Get(store.SettingActiveProfile)
	return id
}

func (req profileRequest) validate() string {
	if req.Name == "" {
		return "Name is required"
	}
	if req.Band == nil {
		return "Band is required"
	}
	if err := req.Band.Validate(); err != nil {
		return "Invalid band: " + err.Error()
	}
	return ""
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	active := h.activeID()
	response := listProfilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p, active))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p, h.activeID()))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := h.store.Profiles().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Profile name already exists")
		return
	}

	p := &store.Profile{Name: req.Name, Band: *req.Band}
	if err := h.store.Profiles().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(p, h.activeID()))
}

// update handles PUT /api/profiles/{id}. Updating the active profile also
// updates the running detector.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req profileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get profile")
		return
	}
	if other, err := h.store.Profiles().GetByName(req.Name); err == nil && other.ID != id {
		writeError(w, http.StatusConflict, "Profile name already exists")
		return
	}

	p.Name = req.Name
	p.Band = *req.Band
	if err := h.store.Profiles().Update(p); err != nil {
		h.storeError(w, err, "Failed to update profile")
		return
	}

	active := h.activeID()
	if active == id && h.tracker != nil {
		if err := h.tracker.SetBand(p.Band); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply band: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, toResponse(p, active))
}

// delete handles DELETE /api/profiles/{id}. The running band is left as is.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get profile")
		return
	}
	if h.tracker != nil {
		if err := h.tracker.SetBand(p.Band); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply band: "+err.Error())
			return
		}
	}
	if _, err := h.store.SetActiveProfile(id); err != nil {
		h.storeError(w, err, "Failed to activate profile")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(p, id))
}

type listSamplesResponse struct {
	Samples []store.Sample `json:"samples"`
}

// samples handles GET /api/profiles/{id}/samples.
func (h *ProfileHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Profiles().GetByID(id); err != nil {
		h.storeError(w, err, "Failed to get profile")
		return
	}
	samples, err := h.store.Samples().GetByProfileID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	if samples == nil {
		samples = []store.Sample{}
	}
	writeJSON(w, http.StatusOK, listSamplesResponse{Samples: samples})
}

// clearSamples handles DELETE /api/profiles/{id}/samples. The profile's
// band is kept.
func (h *ProfileHandler) clearSamples(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Profiles().GetByID(id); err != nil {
		h.storeError(w, err, "Failed to get profile")
		return
	}
	if err := h.store.Samples().DeleteByProfileID(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfileHandler) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeError(w, http.StatusInternalServerError, message)
}
