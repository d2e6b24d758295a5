package api

import (
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB         *sql.DB
	JWTSecret  string
	Authz      *authz.Authorizer
	SessionTTL time.Duration
	NonceTTL   time.Duration
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type meResponse struct {
	User         *model.User        `json:"user,omitempty"`
	Capabilities []model.Capability `json:"capabilities"`
}

// nonceActions maps the public action names to nonce actions.
var nonceActions = map[string]string{
	"autocomplete": auth.ActionAutocomplete,
	"reload_terms": auth.ActionReloadTerms,
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		jsonError(w, r, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		log.Error("looking up user", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("login failed", zap.String("username", req.Username), zap.String("remote", clientIP(r)))
		jsonError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user, h.SessionTTL)
	if err != nil {
		log.Error("generating token", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to generate token")
		return
	}

	log.Info("user logged in", zap.String("user", user.Username), zap.String("role", user.Role))
	jsonResponse(w, r, http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout. The token stays revoked until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := auth.Revoke(r.Context(), h.DB, claims); err != nil {
		logger.FromContext(r.Context()).Error("revoking token", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to log out")
		return
	}

	logger.FromContext(r.Context()).Info("user logged out", zap.String("user", claims.Username))
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, r, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil || user == nil {
		jsonError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, r, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, string(hash)); err != nil {
		logger.FromContext(r.Context()).Error("updating password", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to update password")
		return
	}

	logger.FromContext(r.Context()).Info("user changed own password", zap.String("user", claims.Username))
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "password updated"})
}

// Me handles GET /api/auth/me. Anonymous callers get the public capabilities.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{Capabilities: h.Authz.Capabilities(SubjectFrom(r.Context()))}
	if claims := GetClaims(r.Context()); claims != nil {
		user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
		if err != nil {
			logger.FromContext(r.Context()).Error("loading user", zap.Error(err))
			jsonError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		resp.User = user
	}
	if resp.Capabilities == nil {
		resp.Capabilities = []model.Capability{}
	}
	jsonResponse(w, r, http.StatusOK, resp)
}

// Nonce handles GET /api/auth/nonce?action=autocomplete|reload_terms.
func (h *AuthHandler) Nonce(w http.ResponseWriter, r *http.Request) {
	action, ok := nonceActions[r.URL.Query().Get("action")]
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "unknown action")
		return
	}

	nonce, err := auth.GenerateNonce(h.JWTSecret, action, SubjectFrom(r.Context()).UserID, h.NonceTTL)
	if err != nil {
		logger.FromContext(r.Context()).Error("generating nonce", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to generate nonce")
		return
	}
	jsonResponse(w, r, http.StatusOK, map[string]string{"nonce": nonce})
}
