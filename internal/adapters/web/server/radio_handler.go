package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/lcalzada-xor/wlanctl/internal/core/services/radio"
	"github.com/lcalzada-xor/wlanctl/internal/core/services/registry"
	"github.com/lcalzada-xor/wlanctl/internal/wlan/roaming"
)

// RadioView is a registered radio with its current status.
type RadioView struct {
	ID    string    `json:"id"`
	Added time.Time `json:"added"`
	radio.Status
}

// DecisionView reports the outcome of a roam request.
type DecisionView struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
	Target string `json:"target,omitempty"`
}

func view(e registry.Entry) RadioView {
	return RadioView{ID: e.ID.String(), Added: e.Added, Status: e.Radio.Snapshot()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeError maps control plane errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, radio.ErrNotAssociated):
		status = http.StatusConflict
	case errors.Is(err, radio.ErrNoNetwork):
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (registry.Entry, bool) {
	name := mux.Vars(r)["name"]
	e, ok := s.Registry.Get(name)
	if !ok {
		http.Error(w, "radio not found: "+name, http.StatusNotFound)
	}
	return e, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "radios": s.Registry.Len()})
}

func (s *Server) handleListRadios(w http.ResponseWriter, r *http.Request) {
	entries := s.Registry.List()
	out := make([]RadioView, 0, len(entries))
	for _, e := range entries {
		out = append(out, view(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRadio(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(e))
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := e.Radio.Join(r.Context(), s.Clock()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(e))
}

func (s *Server) handleDisassociate(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := e.Radio.Disassociate(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view(e))
}

func (s *Server) handleRoam(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	d, err := e.Radio.Roam(r.Context(), s.Clock())
	if err != nil {
		writeError(w, err)
		return
	}
	out := DecisionView{Action: d.Action.String()}
	if d.Action != roaming.ActionStay {
		out.Reason = d.Reason.String()
	}
	if d.Action == roaming.ActionRoam {
		out.Target = d.Target.BSSID.String()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	n, err := e.Radio.Flush(r.Context(), s.Clock())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"ampdus": n})
}
