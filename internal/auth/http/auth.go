package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/sessionauth/internal/auth/domain"
	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
)

// SessionManager is the session core as seen by the HTTP layer.
type SessionManager interface {
	Register(ctx context.Context, in service.RegisterInput, dev domain.DeviceContext) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string, dev domain.DeviceContext) (*domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string)
	LogoutAll(ctx context.Context, userID string)
	ChangePassword(ctx context.Context, userID, current, next string) error
	Sessions(ctx context.Context, userID string) ([]domain.Session, error)
	Me(ctx context.Context, userID string) (domain.PublicUser, error)
	VerifyAccess(token string) (jwtx.AccessClaims, error)
}

// AuthHandler serves the /v1/auth endpoints. Request bodies are JSON.
type AuthHandler struct {
	Sessions SessionManager

	// ClientIP resolves the address recorded with a session. Defaults to
	// the direct peer.
	ClientIP httpx.KeyExtractor
}

func (h *AuthHandler) deviceContext(r *http.Request) domain.DeviceContext {
	ip := h.ClientIP
	if ip == nil {
		ip = httpx.IPKeyExtractor
	}
	return domain.DeviceContext{
		UserAgent: r.UserAgent(),
		IPAddress: ip(r),
	}
}

// decode enforces the JSON content type and writes the error response itself.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		ErrInvalidContentType.WriteError(w)
		return false
	}
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		ErrInvalidRequest.WriteError(w)
		return false
	}
	return true
}

// HandleRegister godoc
//
//	@Summary		Register
//	@Description	Creates an account and opens its first session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest		true	"email, first_name, last_name, password"
//	@Success		201		{object}	domain.AuthResult	"access_token, refresh_token, token_type, expires_in, user"
//	@Failure		400		{object}	httpx.APIError		"error, error_description"
//	@Failure		409		{object}	httpx.APIError		"email already registered"
//	@Failure		429		{object}	httpx.APIError		"rate limited"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if e := firstInvalid(
		validateEmail(req.Email),
		validateName("first_name", req.FirstName),
		validateName("last_name", req.LastName),
		validatePassword("password", req.Password),
	); e != nil {
		e.WriteError(w)
		return
	}

	res, err := h.Sessions.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Password:  req.Password,
	}, h.deviceContext(r))
	if err != nil {
		writeServiceError(w, r, "register", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

// HandleLogin godoc
//
//	@Summary		Login
//	@Description	Authenticates with email and password and opens a new session.
//	@Description	Unknown email and wrong password produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest		true	"email, password"
//	@Success		200		{object}	domain.AuthResult	"access_token, refresh_token, token_type, expires_in, user"
//	@Failure		400		{object}	httpx.APIError		"error, error_description"
//	@Failure		401		{object}	httpx.APIError		"invalid credentials or inactive account"
//	@Failure		429		{object}	httpx.APIError		"rate limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Sessions.Login(r.Context(), req.Email, req.Password, h.deviceContext(r))
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// HandleRefresh godoc
//
//	@Summary		Refresh
//	@Description	Exchanges a refresh token for a new pair. The presented token is revoked and cannot be used again.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RefreshRequest		true	"refresh_token"
//	@Success		200		{object}	domain.TokenPair	"access_token, refresh_token, token_type, expires_in"
//	@Failure		400		{object}	httpx.APIError		"error, error_description"
//	@Failure		401		{object}	httpx.APIError		"invalid token"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, "refresh", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout godoc
//
//	@Summary		Logout
//	@Description	Revokes the given refresh token of the caller. Always succeeds, even for unknown or already revoked tokens.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		RefreshRequest	true	"refresh_token"
//	@Success		200		{object}	MessageResponse
//	@Failure		401		{object}	httpx.APIError	"missing or invalid bearer token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	h.Sessions.Logout(r.Context(), userID, req.RefreshToken)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// HandleLogoutAll godoc
//
//	@Summary		Logout everywhere
//	@Description	Revokes every refresh token of the caller.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	httpx.APIError	"missing or invalid bearer token"
//	@Router			/v1/auth/logout-all [post].
func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	h.Sessions.LogoutAll(r.Context(), userID)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "logged out everywhere"})
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Description	Replaces the caller's password and revokes all of their sessions.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		ChangePasswordRequest	true	"current_password, new_password"
//	@Success		200		{object}	MessageResponse
//	@Failure		400		{object}	httpx.APIError	"error, error_description"
//	@Failure		401		{object}	httpx.APIError	"wrong current password"
//	@Router			/v1/auth/change-password [post].
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}
	if e := validatePassword("new_password", req.NewPassword); e != nil {
		e.WriteError(w)
		return
	}

	if err := h.Sessions.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, "change password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "password changed"})
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	domain.PublicUser
//	@Failure		401	{object}	httpx.APIError	"missing or invalid bearer token"
//	@Router			/v1/auth/me [get].
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	me, err := h.Sessions.Me(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "me", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, me)
}

// HandleSessions godoc
//
//	@Summary		List sessions
//	@Description	Lists the caller's live refresh tokens with their device context.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	SessionsResponse
//	@Failure		401	{object}	httpx.APIError	"missing or invalid bearer token"
//	@Router			/v1/auth/sessions [get].
func (h *AuthHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	sessions, err := h.Sessions.Sessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list sessions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}
