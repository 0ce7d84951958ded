package lobby

import (
	"encoding/json"
	"errors"
	"net/http"

	"coup-lite/apps/server/internal/auth"
)

type HTTPHandler struct {
	lobby *Lobby
}

type createRoomRequest struct {
	MaxPlayers int    `json:"maxPlayers"`
	Passcode   string `json:"passcode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHTTPHandler(l *Lobby) *HTTPHandler {
	return &HTTPHandler{lobby: l}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms", h.handleRooms)
}

// handleRooms lists public rooms (GET) or opens a new one (POST).
func (h *HTTPHandler) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"items": h.lobby.ListRooms()})
	case http.MethodPost:
		var req createRoomRequest
		if r.ContentLength != 0 {
			dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		t, err := h.lobby.CreateRoom(RoomOptions{MaxPlayers: req.MaxPlayers, Passcode: req.Passcode})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, auth.ErrInvalidPasscode) || errors.Is(err, ErrInvalidOptions) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		info := t.Info()
		writeJSON(w, http.StatusCreated, RoomInfo{
			Code:       t.ID,
			MaxPlayers: info.MaxPlayers,
			Private:    t.Private(),
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
