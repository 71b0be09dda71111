// Package testutil provides fixtures and helpers shared by handler and
// middleware tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
)

// NewUser returns a user who belongs to a fresh home family.
func NewUser(email string) *models.User {
	familyID := uuid.New()
	now := time.Now().UTC()
	return &models.User{
		ID:        uuid.New(),
		Email:     email,
		FamilyID:  &familyID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewStaff returns a staff user with a home family.
func NewStaff(email string) *models.User {
	u := NewUser(email)
	u.IsStaff = true
	return u
}

// NewFamily builds a family administered by admin whose members are admin
// followed by others, in that order.
func NewFamily(admin *models.User, others ...*models.User) *models.FamilyWithMembers {
	id := uuid.New()
	if admin.FamilyID != nil {
		id = *admin.FamilyID
	}
	f := &models.FamilyWithMembers{
		Family:     models.Family{ID: id, AdminID: admin.ID},
		AdminEmail: admin.Email,
		Members:    []models.FamilyMember{{ID: admin.ID, Email: admin.Email}},
	}
	for _, u := range others {
		f.Members = append(f.Members, models.FamilyMember{ID: u.ID, Email: u.Email})
	}
	return f
}

// RandomEmail generates a unique address.
func RandomEmail() string {
	return uuid.New().String()[:8] + "@test.com"
}

// JSONBody marshals data for use as a request body.
func JSONBody(t *testing.T, data interface{}) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return bytes.NewReader(body)
}

// NewJSONRequest creates a request with a JSON body and content type.
func NewJSONRequest(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, JSONBody(t, data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses a JSON object response body into a map.
func ParseJSONResponse(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return result
}
