package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
)

type contextKey string

const claimsKey contextKey = "claims"

// OptionalAuth resolves the session from the Authorization header or the
// session cookie and adds its claims to the context. Requests without a
// token continue anonymously. A bad bearer token is rejected; a bad cookie
// is ignored.
func OptionalAuth(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, bearer := requestToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.Resolve(r.Context(), db, secret, token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					logger.FromContext(r.Context()).Error("resolving session", zap.Error(err))
					jsonError(w, r, http.StatusInternalServerError, "internal error")
					return
				}
				if bearer {
					jsonError(w, r, http.StatusUnauthorized, "invalid token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), true
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value, false
	}
	return "", false
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			jsonError(w, r, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require returns middleware that checks the caller holds capability c.
func Require(az *authz.Authorizer, c model.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFrom(r.Context())
			if !az.Can(subject, c, authz.Resource{}) {
				if subject.Anonymous() {
					jsonError(w, r, http.StatusUnauthorized, "not authenticated")
					return
				}
				jsonError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims retrieves the session claims from the context.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// SubjectFrom returns the authorization subject of the request.
func SubjectFrom(ctx context.Context) authz.Subject {
	claims := GetClaims(ctx)
	if claims == nil {
		return authz.Subject{}
	}
	return authz.Subject{UserID: claims.UserID, Role: claims.Role}
}

// username is used in audit log lines.
func username(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Username
	}
	return ""
}
