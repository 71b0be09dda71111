package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

type FamilyHandler struct {
	familyService services.FamilyServiceInterface
}

func NewFamilyHandler(familyService services.FamilyServiceInterface) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

type FamilyResponse struct {
	ID      string   `json:"id"`
	Admin   string   `json:"admin"`
	Members []string `json:"members"`
}

func newFamilyResponse(f *models.FamilyWithMembers) FamilyResponse {
	return FamilyResponse{
		ID:      f.ID.String(),
		Admin:   f.AdminEmail,
		Members: f.MemberEmails(),
	}
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	families, err := h.familyService.List(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err, "list_families")
		return
	}

	resp := make([]FamilyResponse, 0, len(families))
	for _, f := range families {
		resp = append(resp, newFamilyResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "family")
	if !ok {
		return
	}

	family, err := h.familyService.Get(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err, "get_family")
		return
	}
	writeJSON(w, http.StatusOK, newFamilyResponse(family))
}

// Leave responds with the family the user returned to.
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "family")
	if !ok {
		return
	}

	home, err := h.familyService.Leave(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, err, "leave_family")
		return
	}
	writeJSON(w, http.StatusOK, newFamilyResponse(home))
}

// RemoveMember expects the member's email in the "member" query parameter.
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if !requireUser(w, r) {
		return
	}
	id, ok := pathID(w, r, "family")
	if !ok {
		return
	}

	family, err := h.familyService.RemoveMember(r.Context(), GetUserFromContext(r.Context()), id, r.URL.Query().Get("member"))
	if err != nil {
		writeServiceError(w, err, "remove_member")
		return
	}
	writeJSON(w, http.StatusOK, newFamilyResponse(family))
}
