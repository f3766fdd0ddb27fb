package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"masterannonce/internal/auth"
	"masterannonce/internal/middleware"
	"masterannonce/internal/models"
)

// Auth groups the account endpoints.
type Auth struct {
	svc *auth.Service
}

// NewAuth creates the account handler group.
func NewAuth(svc *auth.Service) *Auth {
	return &Auth{svc: svc}
}

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// userView is the public projection of an account.
type userView struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// Register handles POST /api/v1/auth/register.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateRegistration(in.Username, in.Email, in.Password); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role})
}

// Login handles POST /api/v1/auth/login.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var v violations
	if strings.TrimSpace(in.Username) == "" {
		v.add("username", "must not be blank")
	}
	if in.Password == "" {
		v.add("password", "must not be blank")
	}
	if err := v.err(); err != nil {
		writeError(w, r, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), strings.TrimSpace(in.Username), in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.RefreshToken == "" {
		writeError(w, r, &validationError{details: []string{"refreshToken: must not be blank"}})
		return
	}

	pair, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles POST /api/v1/auth/logout. The body is optional and may
// carry the refresh token to revoke alongside the access token.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshInput
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
	}

	p := middleware.PrincipalFromCtx(r.Context())
	if err := h.svc.Logout(r.Context(), p, in.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
