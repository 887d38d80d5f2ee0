package server

import (
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/logging"
	"github.com/muurk/orion-kiosk/internal/version"
)

// GestureRequest is the body of POST /api/gesture.
type GestureRequest struct {
	Gesture string `json:"gesture"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

const maxRequestBody = 4 << 10

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	m := s.store.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Orion kiosk\n\n")
	fmt.Fprintf(w, "Portal:  %s\n", s.cfg.URL)
	fmt.Fprintf(w, "Menu:    %s\n", m.Menu)
	fmt.Fprintf(w, "Theme:   %s\n", m.Theme)
	fmt.Fprintf(w, "Standby: %t\n", m.Standby)
	if len(m.EnergyMetrics) > 0 {
		fmt.Fprintln(w)
		for _, line := range m.EnergyMetrics {
			fmt.Fprintln(w, line)
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	if s.injector == nil {
		writeError(w, http.StatusNotImplemented, "gesture injection disabled")
		return
	}

	var req GestureRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := gesture.Parse(req.Gesture)
	if err != nil || code == gesture.None {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown gesture %q", req.Gesture))
		return
	}

	s.injector.StoreAt(code, image.Pt(req.X, req.Y))
	logging.Debug("Gesture injected", zap.String("gesture", code.String()), zap.String("remote_addr", r.RemoteAddr))
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		writeError(w, http.StatusNotFound, "no display attached")
		return
	}
	img := s.frames.LastFrame()
	if img == nil {
		writeError(w, http.StatusNotFound, "nothing rendered yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		logging.Warn("Failed to encode screen", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
