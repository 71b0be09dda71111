package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/HammerMeetNail/firefruitmoney/internal/handlers"
	"github.com/HammerMeetNail/firefruitmoney/internal/logging"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

const bearerPrefix = "Bearer "

type AuthMiddleware struct {
	tokens services.TokenServiceInterface
	users  services.UserServiceInterface
}

func NewAuthMiddleware(tokens services.TokenServiceInterface, users services.UserServiceInterface) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Authenticate resolves a bearer access token into the request user.
// Does not reject unauthenticated requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.tokens.ParseAccess(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			logging.Debug("Token user lookup failed", map[string]interface{}{
				"user_id": userID.String(),
				"error":   err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetUserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
