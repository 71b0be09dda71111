package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/firefruitmoney/internal/models"
	"github.com/HammerMeetNail/firefruitmoney/internal/services"
)

type AuthHandler struct {
	userService  services.UserServiceInterface
	authService  services.AuthServiceInterface
	tokenService services.TokenServiceInterface
}

func NewAuthHandler(userService services.UserServiceInterface, authService services.AuthServiceInterface, tokenService services.TokenServiceInterface) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		tokenService: tokenService,
	}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenRequest struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
}

type UpdateMeRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type TokenResponse struct {
	Access            string `json:"access"`
	AccessExpiration  string `json:"access_expiration"`
	Refresh           string `json:"refresh,omitempty"`
	RefreshExpiration string `json:"refresh_expiration,omitempty"`
}

func newTokenResponse(pair *models.TokenPair) TokenResponse {
	resp := TokenResponse{
		Access:           pair.Access,
		AccessExpiration: pair.AccessExpiration.UTC().Format(models.TokenTimeFormat),
	}
	if pair.Refresh != "" {
		resp.Refresh = pair.Refresh
		resp.RefreshExpiration = pair.RefreshExpiration.UTC().Format(models.TokenTimeFormat)
	}
	return resp
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeServiceError(w, err, "register")
		return
	}

	user, err := h.userService.Create(r.Context(), models.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		writeServiceError(w, err, "register")
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	if err != nil {
		writeServiceError(w, err, "login")
		return
	}

	pair, err := h.tokenService.IssuePair(user.ID)
	if err != nil {
		writeServiceError(w, err, "login")
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) TokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.Refresh)
	if errors.Is(err, services.ErrInvalidToken) || errors.Is(err, services.ErrTokenRevoked) {
		writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	if err != nil {
		writeServiceError(w, err, "token_refresh")
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) TokenVerify(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	err := h.tokenService.Verify(r.Context(), req.Token)
	if errors.Is(err, services.ErrInvalidToken) || errors.Is(err, services.ErrTokenRevoked) {
		writeError(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	if err != nil {
		writeServiceError(w, err, "token_verify")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := models.UpdateUserParams{Email: req.Email}
	if req.Password != nil {
		hash, err := h.authService.HashPassword(*req.Password)
		if err != nil {
			writeServiceError(w, err, "update_me")
			return
		}
		params.PasswordHash = &hash
	}

	updated, err := h.userService.Update(r.Context(), user.ID, params)
	if err != nil {
		writeServiceError(w, err, "update_me")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
