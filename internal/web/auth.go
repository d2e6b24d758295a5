package web

import (
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// homeFor is where a role lands after logging in.
func homeFor(role string) string {
	if role == model.RoleAdministrator {
		return "/tools"
	}
	return "/items"
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil {
		http.Redirect(w, r, homeFor(claims.Role), http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, r, "login.html", s.pageData(r, "Log in"))
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		data := s.pageData(r, "Log in")
		data.Error = msg
		s.Templates.RenderStatus(w, r, status, "login.html", data)
	}

	if username == "" || password == "" {
		fail(http.StatusBadRequest, "Enter your username and password.")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil || user == nil || user.DeletedAt != nil {
		fail(http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.FromContext(r.Context()).Warn("login failed", zap.String("username", username))
		fail(http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user, s.SessionTTL)
	if err != nil {
		logger.FromContext(r.Context()).Error("generating token", zap.Error(err))
		fail(http.StatusInternalServerError, "Login failed.")
		return
	}

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = auth.TokenExpiry
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})

	logger.FromContext(r.Context()).Info("user logged in", zap.String("user", user.Username), zap.String("role", user.Role))
	http.Redirect(w, r, homeFor(user.Role), http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil {
		if err := auth.Revoke(r.Context(), s.DB, claims); err != nil {
			logger.FromContext(r.Context()).Error("revoking token", zap.Error(err))
		}
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
