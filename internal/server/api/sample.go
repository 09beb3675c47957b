package api

import (
	"errors"
	"image"
	"net/http"

	"github.com/ayusman/markerpad/internal/app"
	"github.com/ayusman/markerpad/internal/detector"
	"github.com/ayusman/markerpad/internal/store"
)

// Sampler suggests a color band from a point in the latest frame.
type Sampler interface {
	BandSetter
	SampleAt(p image.Point) (detector.ColorBand, detector.HSV, error)
}

// SampleHandler serves POST /api/sample.
type SampleHandler struct {
	sampler Sampler
	store   *store.Store
}

// NewSampleHandler creates a SampleHandler. s may be nil, in which case
// samples cannot be saved to a profile.
func NewSampleHandler(sampler Sampler, s *store.Store) *SampleHandler {
	return &SampleHandler{sampler: sampler, store: s}
}

type sampleRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
	// Profile names a profile to create or overwrite with the band.
	Profile string `json:"profile,omitempty"`
	// Apply switches the running detector to the band.
	Apply bool `json:"apply,omitempty"`
}

type sampleResponse struct {
	Band    detector.ColorBand `json:"band"`
	Color   detector.HSV       `json:"color"`
	Applied bool               `json:"applied"`
	Profile *profileResponse   `json:"profile,omitempty"`
}

func (h *SampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sampleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Profile != "" && h.store == nil {
		writeError(w, http.StatusBadRequest, "Profiles are not available")
		return
	}

	pt := image.Pt(req.X, req.Y)
	band, color, err := h.sampler.SampleAt(pt)
	switch {
	case errors.Is(err, app.ErrNoFrame):
		writeError(w, http.StatusServiceUnavailable, "No frame captured yet")
		return
	case errors.Is(err, detector.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, "Point is outside the frame")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to sample color")
		return
	}

	resp := sampleResponse{Band: band, Color: color}

	if req.Profile != "" {
		p, err := h.saveProfile(req.Profile, band)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save profile")
			return
		}
		if _, err := h.store.Samples().Add(p.ID, pt, color); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save sample")
			return
		}
		active, _ := h.store.Settings().Get(store.SettingActiveProfile)
		pr := toResponse(p, active)
		resp.Profile = &pr
	}

	if req.Apply {
		if err := h.sampler.SetBand(band); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply band: "+err.Error())
			return
		}
		resp.Applied = true
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SampleHandler) saveProfile(name string, band detector.ColorBand) (*store.Profile, error) {
	p, err := h.store.Profiles().GetByName(name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = &store.Profile{Name: name, Band: band}
		return p, h.store.Profiles().Create(p)
	case err != nil:
		return nil, err
	}
	p.Band = band
	return p, h.store.Profiles().Update(p)
}
