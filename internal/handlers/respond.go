package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

var kindStatus = map[services.ErrorKind]int{
	services.KindNotFound:         http.StatusNotFound,
	services.KindInvalidOperation: http.StatusBadRequest,
	services.KindConflict:         http.StatusConflict,
}

var sentinelMessages = map[error]string{
	services.ErrUserNotFound:     "User not found.",
	services.ErrFamilyNotFound:   "Family not found.",
	services.ErrInviteNotFound:   "Invite not found.",
	services.ErrResourceNotFound: "Not found.",
}

// writeServiceError maps a service error to its HTTP status. Errors without a
// domain kind are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	kind, ok := services.KindOf(err)
	if !ok {
		logging.Error("Request failed", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}
	var domainErr *services.Error
	if errors.As(err, &domainErr) {
		resp.Field = domainErr.Field
	} else {
		for sentinel, msg := range sentinelMessages {
			if errors.Is(err, sentinel) {
				resp.Error = msg
				break
			}
		}
	}
	writeJSON(w, kindStatus[kind], resp)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathID parses the {id} path value.
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func requireUser(w http.ResponseWriter, r *http.Request) bool {
	if GetUserFromContext(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	return true
}
