package api

import (
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing users", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, r, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" || req.Role == "" {
		jsonError(w, r, http.StatusBadRequest, "username, password, and role required")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, r, http.StatusBadRequest, "invalid role")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Username, string(hash), req.Role)
	if err != nil {
		jsonError(w, r, http.StatusConflict, "username already exists")
		return
	}

	logger.FromContext(r.Context()).Info("user created",
		zap.String("user", username(r.Context())),
		zap.String("new_user", req.Username),
		zap.String("role", req.Role),
	)
	jsonResponse(w, r, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		logger.FromContext(r.Context()).Error("getting user", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		jsonError(w, r, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, r, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, r, http.StatusBadRequest, "invalid role")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || user == nil || user.DeletedAt != nil {
		jsonError(w, r, http.StatusNotFound, "user not found")
		return
	}

	if err := store.UpdateUserRole(r.Context(), h.DB, id, req.Role); err != nil {
		logger.FromContext(r.Context()).Error("updating user", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to update user")
		return
	}
	user.Role = req.Role

	logger.FromContext(r.Context()).Info("user role updated",
		zap.String("user", username(r.Context())),
		zap.String("target_user", user.Username),
		zap.String("new_role", req.Role),
	)
	jsonResponse(w, r, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	target, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil || target == nil || target.DeletedAt != nil {
		jsonError(w, r, http.StatusNotFound, "user not found")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, string(hash)); err != nil {
		logger.FromContext(r.Context()).Error("resetting password", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to reset password")
		return
	}

	logger.FromContext(r.Context()).Info("user password reset",
		zap.String("user", username(r.Context())),
		zap.String("target_user", target.Username),
	)
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}

	if claims := GetClaims(r.Context()); claims != nil && claims.UserID == id {
		jsonError(w, r, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	target, _ := store.GetUser(r.Context(), h.DB, id)
	if target == nil || target.DeletedAt != nil {
		jsonError(w, r, http.StatusNotFound, "user not found")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		logger.FromContext(r.Context()).Error("deleting user", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to delete user")
		return
	}

	logger.FromContext(r.Context()).Info("user deleted",
		zap.String("user", username(r.Context())),
		zap.String("deleted_user", fmt.Sprintf("%s (id:%d)", target.Username, id)),
	)
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "user deleted"})
}
