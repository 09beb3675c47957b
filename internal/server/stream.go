package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/markerpad/internal/metrics"
)

// FrameSource provides annotated JPEG frames.
type FrameSource interface {
	SubscribeFrames() (<-chan []byte, func())
	LatestFrame() ([]byte, bool)
}

// StreamHandler serves annotated frames as an MJPEG stream. It never reads
// the camera itself; frames come from the tracking loop.
type StreamHandler struct {
	frames  FrameSource
	metrics *metrics.Metrics
}

// NewStreamHandler creates a new StreamHandler. m may be nil.
func NewStreamHandler(frames FrameSource, m *metrics.Metrics) *StreamHandler {
	return &StreamHandler{frames: frames, metrics: m}
}

// ServeHTTP streams MJPEG frames until the client leaves or tracking stops.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, unsubscribe := h.frames.SubscribeFrames()
	defer unsubscribe()

	if h.metrics != nil {
		h.metrics.StreamClients.Add(1)
		defer h.metrics.StreamClients.Add(-1)
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if jpeg, ok := h.frames.LatestFrame(); ok {
		if writePart(w, jpeg) != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case jpeg, ok := <-frames:
			if !ok {
				return
			}
			if writePart(w, jpeg) != nil {
				return
			}
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
