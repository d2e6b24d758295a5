package web

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/settings"
	"github.com/erazemk/assetlend/internal/store"
)

// UsersPage handles GET /users.
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	s.renderUsers(w, r, "", "")
}

func (s *Server) renderUsers(w http.ResponseWriter, r *http.Request, errMsg, success string) {
	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing users", zap.Error(err))
	}

	data := s.pageData(r, "Users")
	data.Error = errMsg
	data.Success = success
	s.Templates.Render(w, r, "users.html", &struct {
		*PageData
		Users []model.User
		Roles []string
	}{
		PageData: data,
		Users:    users,
		Roles:    []string{model.RoleAdministrator, model.RoleOperator, model.RoleMember},
	})
}

// UserCreateSubmit handles POST /users.
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || password == "" || !model.ValidRole(role) {
		s.renderUsers(w, r, "Enter a username, a password and a role.", "")
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		s.renderUsers(w, r, err.Error(), "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := store.CreateUser(r.Context(), s.DB, username, string(hash), role); err != nil {
		s.renderUsers(w, r, "That username is already taken.", "")
		return
	}
	logger.FromContext(r.Context()).Info("user created", zap.String("new_user", username), zap.String("role", role))
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserResetPasswordSubmit handles POST /users/{id}/password.
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	newPassword := r.FormValue("new_password")
	if err := model.ValidatePassword(newPassword); err != nil {
		s.renderUsers(w, r, err.Error(), "")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, id, string(hash)); err != nil {
		logger.FromContext(r.Context()).Error("resetting password", zap.Error(err))
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserUpdateRoleSubmit handles POST /users/{id}/role.
func (s *Server) UserUpdateRoleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	role := r.FormValue("role")
	if err != nil || !model.ValidRole(role) {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	if err := store.UpdateUserRole(r.Context(), s.DB, id, role); err != nil {
		logger.FromContext(r.Context()).Error("updating role", zap.Error(err))
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserDeleteSubmit handles POST /users/{id}/delete.
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if claims := GetWebClaims(r.Context()); claims != nil && claims.UserID == id {
		s.renderUsers(w, r, "You cannot delete yourself.", "")
		return
	}

	if err := store.DeleteUser(r.Context(), s.DB, id); err != nil {
		logger.FromContext(r.Context()).Error("deleting user", zap.Error(err))
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// settingRow is one editable setting.
type settingRow struct {
	Key   string
	Value any
	Bool  bool
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	s.renderSettings(w, r, "", "")
}

func (s *Server) renderSettings(w http.ResponseWriter, r *http.Request, errMsg, success string) {
	leaves, err := s.Settings.Leaves(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reading settings", zap.Error(err))
		errMsg = "Settings could not be loaded."
	}

	rows := make([]settingRow, 0, len(leaves))
	for k, v := range leaves {
		_, isBool := v.(bool)
		rows = append(rows, settingRow{Key: k, Value: v, Bool: isBool})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })

	data := s.pageData(r, "Settings")
	data.Error = errMsg
	data.Success = success
	s.Templates.Render(w, r, "settings.html", &struct {
		*PageData
		Settings []settingRow
	}{
		PageData: data,
		Settings: rows,
	})
}

// SettingsSubmit handles POST /settings. Every form field named after a
// setting key is saved.
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSettings(w, r, "Invalid form.", "")
		return
	}

	leaves, err := s.Settings.Leaves(r.Context())
	if err != nil {
		s.renderSettings(w, r, "Settings could not be loaded.", "")
		return
	}

	values := map[string]any{}
	for key := range leaves {
		raw, ok := r.PostForm[key]
		if !ok || len(raw) == 0 {
			continue
		}
		v, err := settings.Parse(key, raw[len(raw)-1])
		if err != nil {
			s.renderSettings(w, r, err.Error(), "")
			return
		}
		values[key] = v
	}

	if len(values) > 0 {
		if err := s.Settings.Update(r.Context(), values); err != nil {
			logger.FromContext(r.Context()).Error("saving settings", zap.Error(err))
			s.renderSettings(w, r, "Settings could not be saved.", "")
			return
		}
	}
	logger.FromContext(r.Context()).Info("settings saved", zap.Int("keys", len(values)))
	s.renderSettings(w, r, "", "Settings saved.")
}

// SettingsReset handles POST /settings/reset.
func (s *Server) SettingsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Settings.Reset(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("resetting settings", zap.Error(err))
		s.renderSettings(w, r, "Settings could not be reset.", "")
		return
	}
	s.renderSettings(w, r, "", "Settings restored to their defaults.")
}

// AccountPage handles GET /account.
func (s *Server) AccountPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, r, "account.html", s.pageData(r, "Account"))
}

// AccountSubmit handles POST /account (change own password).
func (s *Server) AccountSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := s.pageData(r, "Account")

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	fail := func(msg string) {
		data.Error = msg
		s.Templates.Render(w, r, "account.html", data)
	}

	if currentPassword == "" || newPassword == "" {
		fail("Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		fail(err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		fail("Could not load your account.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		fail("Current password is incorrect.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		fail("Could not save the password.")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, string(hash)); err != nil {
		logger.FromContext(r.Context()).Error("updating password", zap.Error(err))
		fail("Could not save the password.")
		return
	}

	data.Success = "Password changed."
	s.Templates.Render(w, r, "account.html", data)
}
