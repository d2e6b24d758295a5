package web

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
)

type webContextKey string

const webClaimsKey webContextKey = "webclaims"

// forbiddenMessage is shown when a logged-in user lacks a capability.
const forbiddenMessage = "You do not have sufficient permissions to access this page."

// SessionMiddleware validates the session cookie and adds its claims to the
// context. Invalid or revoked cookies are cleared and the visitor continues
// anonymously.
func SessionMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.Resolve(r.Context(), db, secret, cookie.Value)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					logger.FromContext(r.Context()).Error("resolving session", zap.Error(err))
				}
				clearAuthCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), webClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetWebClaims retrieves the session claims from web context.
func GetWebClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(webClaimsKey).(*auth.Claims)
	return claims
}

func subject(ctx context.Context) authz.Subject {
	claims := GetWebClaims(ctx)
	if claims == nil {
		return authz.Subject{}
	}
	return authz.Subject{UserID: claims.UserID, Role: claims.Role}
}

// requireLogin redirects anonymous visitors to the login page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetWebClaims(r.Context()) == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCatalog lets through whoever may browse the catalog.
func (s *Server) requireCatalog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := subject(r.Context())
		if s.Authz.Can(sub, model.CapViewItems, authz.Resource{}) {
			next.ServeHTTP(w, r)
			return
		}
		if sub.Anonymous() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		s.forbidden(w, r)
	})
}

// adminPage guards back-office pages. Anonymous visitors go to the login
// page and members are sent home without a message; anyone else lacking c
// gets a 403 page.
func (s *Server) adminPage(c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := subject(r.Context())
			switch {
			case sub.Anonymous():
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			case sub.Role == model.RoleMember:
				http.Redirect(w, r, "/", http.StatusSeeOther)
			case !s.Authz.Can(sub, c, authz.Resource{}):
				s.forbidden(w, r)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (s *Server) forbidden(w http.ResponseWriter, r *http.Request) {
	s.errorPage(w, r, http.StatusForbidden, forbiddenMessage)
}

func (s *Server) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.Templates.RenderStatus(w, r, status, "error.html", &struct {
		*PageData
		Message string
	}{
		PageData: s.pageData(r, http.StatusText(status)),
		Message:  message,
	})
}

// pageData builds the base template data for the current visitor.
func (s *Server) pageData(r *http.Request, title string) *PageData {
	caps := map[model.Capability]bool{}
	for _, c := range s.Authz.Capabilities(subject(r.Context())) {
		caps[c] = true
	}
	return &PageData{
		Title:        title,
		User:         GetWebClaims(r.Context()),
		Capabilities: caps,
	}
}
