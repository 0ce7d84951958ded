package auth

import (
	"encoding/json"
	"net/http"
)

type HTTPHandler struct {
	manager Service
}

type resumeRequest struct {
	Token string `json:"token"`
}

type seatResponse struct {
	Room     string `json:"room"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(manager Service) *HTTPHandler {
	return &HTTPHandler{manager: manager}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/seat/resume", h.handleResume)
}

// handleResume tells a reloading client which room its token belongs to.
func (h *HTTPHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req resumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	seat, ok := h.manager.ResolveSeat(req.Token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid seat token")
		return
	}
	writeJSON(w, http.StatusOK, seatResponse{Room: seat.Room, PlayerID: seat.PlayerID, Name: seat.Name})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
