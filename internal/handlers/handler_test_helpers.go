package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
	"github.com/HammerMeetNail/firefruitmoney/internal/testutil"
)

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d (%s)", status, rr.Code, rr.Body.String())
	}
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to parse response %q: %v", rr.Body.String(), err)
	}
}

// newAuthedRequest builds a request carrying user in its context and an
// optional {id} path value.
func newAuthedRequest(method, target string, body io.Reader, user *models.User, id string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if user != nil {
		req = req.WithContext(SetUserInContext(req.Context(), user))
	}
	return req
}

func testUser() *models.User {
	return testutil.NewUser("alice@example.com")
}
