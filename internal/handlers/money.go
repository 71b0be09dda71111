package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

// MoneyHandler serves categories, tags and expenses scoped to the caller's
// family.
type MoneyHandler struct {
	money services.MoneyServiceInterface
}

func NewMoneyHandler(money services.MoneyServiceInterface) *MoneyHandler {
	return &MoneyHandler{money: money}
}

// scope builds the listing filter. last_sync_time (RFC3339) limits results to
// rows updated since then, deleted ones included.
func (h *MoneyHandler) scope(w http.ResponseWriter, r *http.Request) (models.ListFilter, bool) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return models.ListFilter{}, false
	}

	var since *time.Time
	if raw := r.URL.Query().Get("last_sync_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "last_sync_time must be an RFC3339 timestamp",
				Field: "last_sync_time",
			})
			return models.ListFilter{}, false
		}
		since = &t
	}

	filter, err := h.money.Scope(user, since)
	if err != nil {
		writeServiceError(w, err, "money_scope")
		return models.ListFilter{}, false
	}
	return filter, true
}

func listResource[T any](h *MoneyHandler, w http.ResponseWriter, r *http.Request, list func(context.Context, models.ListFilter) ([]*T, error), action string) {
	filter, ok := h.scope(w, r)
	if !ok {
		return
	}
	items, err := list(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, action)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func getResource[T any](h *MoneyHandler, w http.ResponseWriter, r *http.Request, get func(context.Context, models.ListFilter, uuid.UUID) (*T, error), action string) {
	filter, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "resource")
	if !ok {
		return
	}
	item, err := get(r.Context(), filter, id)
	if err != nil {
		writeServiceError(w, err, action)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func deleteResource(h *MoneyHandler, w http.ResponseWriter, r *http.Request, del func(context.Context, models.ListFilter, uuid.UUID) error, action string) {
	filter, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "resource")
	if !ok {
		return
	}
	if err := del(r.Context(), filter, id); err != nil {
		writeServiceError(w, err, action)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func createResource[T, P any](w http.ResponseWriter, r *http.Request, create func(context.Context, *models.User, P) (*T, error), action string) {
	if !requireUser(w, r) {
		return
	}
	var params P
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	item, err := create(r.Context(), GetUserFromContext(r.Context()), params)
	if err != nil {
		writeServiceError(w, err, action)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *MoneyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	listResource(h, w, r, h.money.ListCategories, "list_categories")
}

func (h *MoneyHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	getResource(h, w, r, h.money.GetCategory, "get_category")
}

func (h *MoneyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.money.CreateCategory, "create_category")
}

func (h *MoneyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteResource(h, w, r, h.money.DeleteCategory, "delete_category")
}

func (h *MoneyHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	listResource(h, w, r, h.money.ListTags, "list_tags")
}

func (h *MoneyHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	getResource(h, w, r, h.money.GetTag, "get_tag")
}

func (h *MoneyHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.money.CreateTag, "create_tag")
}

func (h *MoneyHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	deleteResource(h, w, r, h.money.DeleteTag, "delete_tag")
}

func (h *MoneyHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	listResource(h, w, r, h.money.ListExpenses, "list_expenses")
}

func (h *MoneyHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	getResource(h, w, r, h.money.GetExpense, "get_expense")
}

func (h *MoneyHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	createResource(w, r, h.money.CreateExpense, "create_expense")
}

func (h *MoneyHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	deleteResource(h, w, r, h.money.DeleteExpense, "delete_expense")
}
