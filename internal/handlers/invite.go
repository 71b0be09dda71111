package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

type InviteHandler struct {
	inviteService services.InviteServiceInterface
}

func NewInviteHandler(inviteService services.InviteServiceInterface) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

type CreateInviteRequest struct {
	Recipient string `json:"recipient"`
}

type RespondInviteRequest struct {
	Status string `json:"status"`
}

type InviteResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func newInviteResponse(inv *models.InviteWithUsers) InviteResponse {
	return InviteResponse{
		ID:        inv.ID.String(),
		Sender:    inv.SenderEmail,
		Recipient: inv.RecipientEmail,
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt.UTC().Format(models.TokenTimeFormat),
	}
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	invites, err := h.inviteService.List(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "list_invites")
		return
	}

	resp := make([]InviteResponse, 0, len(invites))
	for _, inv := range invites {
		resp = append(resp, newInviteResponse(inv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	var req CreateInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.inviteService.Send(r.Context(), GetUserFromContext(r.Context()), req.Recipient)
	if err != nil {
		writeServiceError(w, err, "send_invite")
		return
	}
	writeJSON(w, http.StatusCreated, newInviteResponse(inv))
}

func (h *InviteHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "invite")
	if !ok {
		return
	}

	inv, err := h.inviteService.Get(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err, "get_invite")
		return
	}
	writeJSON(w, http.StatusOK, newInviteResponse(inv))
}

// Respond accepts or declines an invite. The invite no longer exists
// afterwards; the response carries the final status.
func (h *InviteHandler) Respond(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "invite")
	if !ok {
		return
	}
	var req RespondInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	inv, err := h.inviteService.Respond(r.Context(), GetUserFromContext(r.Context()), id, req.Status)
	if err != nil {
		writeServiceError(w, err, "respond_invite")
		return
	}
	writeJSON(w, http.StatusOK, newInviteResponse(inv))
}

func (h *InviteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "invite")
	if !ok {
		return
	}

	if err := h.inviteService.Cancel(r.Context(), GetUserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err, "cancel_invite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
