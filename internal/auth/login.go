package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"samba-tours/internal/apperr"
	"samba-tours/internal/logger"
	"samba-tours/internal/utils"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
}

// Handler serves password sign-in for admin and editor profiles.
type Handler struct {
	Profiles ProfileStore
	Issuer   *HMACVerifier
	Revoked  RevocationStore
	Logger   *logger.Logger
}

var errBadCredentials = fmt.Errorf("invalid email or password: %w", apperr.ErrUnauthorized)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.WriteError(w, "Invalid sign-in form", err)
		return
	}
	if h.Issuer == nil {
		utils.WriteError(w, "Password sign-in is disabled", fmt.Errorf("no JWT secret configured: %w", apperr.ErrForbidden))
		return
	}

	profile, err := h.Profiles.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("unknown email %s", req.Email))
			utils.WriteError(w, "Sign-in failed", errBadCredentials)
			return
		}
		utils.WriteError(w, "Sign-in failed", err)
		return
	}
	if profile.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		h.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("bad password for %s", req.Email))
		utils.WriteError(w, "Sign-in failed", errBadCredentials)
		return
	}
	if !allowedRole(profile.Role) {
		utils.WriteError(w, "Sign-in failed", fmt.Errorf("role %q: %w", profile.Role, apperr.ErrForbidden))
		return
	}

	token, expires, err := h.Issuer.Issue(profile)
	if err != nil {
		utils.WriteError(w, "Sign-in failed", err)
		return
	}
	h.Logger.Info("AUTH", fmt.Sprintf("Profile %s signed in as %s", profile.ID, profile.Role))
	utils.WriteSuccess(w, http.StatusOK, "Signed in", LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		UserID:    profile.ID,
		Role:      profile.Role,
	})
}

// Logout revokes the bearer token used for the request.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		utils.WriteError(w, "Authentication required", apperr.ErrUnauthorized)
		return
	}
	if id.TokenID != "" && h.Revoked != nil {
		if err := h.Revoked.Revoke(r.Context(), id.TokenID, time.Unix(id.Expires, 0)); err != nil {
			utils.WriteError(w, "Sign-out failed", err)
			return
		}
	}
	utils.WriteSuccess(w, http.StatusOK, "Signed out", nil)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		utils.WriteError(w, "Authentication required", apperr.ErrUnauthorized)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Current identity", id)
}
