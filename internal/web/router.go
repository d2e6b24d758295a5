package web

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/seeder"
	"github.com/erazemk/assetlend/internal/settings"
	webembed "github.com/erazemk/assetlend/web"
)

// Deps are the collaborators of the page handlers.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Catalog   *catalog.Service
	Authz     *authz.Authorizer
	Settings  *settings.Manager
	Seeder    *seeder.Installer

	SessionTTL    time.Duration
	NonceTTL      time.Duration
	SecureCookies bool
}

// Server holds all dependencies for page handlers.
type Server struct {
	Deps
	Templates *Templates
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(d Deps) (chi.Router, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	s := &Server{Deps: d, Templates: templates}

	r := chi.NewRouter()
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(d.JWTSecret, d.DB))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/items", http.StatusSeeOther)
		})
		r.Get("/login", s.LoginPage)
		r.Post("/login", s.LoginSubmit)
		r.Post("/logout", s.Logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireCatalog)
			r.Get("/items", s.ItemsPage)
			r.Get("/item", s.ItemDetailPage)
			r.Get("/items/{slug}", s.ItemDetailPage)
			r.Get("/items/{slug}/image", s.ItemImage)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Get("/account", s.AccountPage)
			r.Post("/account", s.AccountSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminPage(model.CapManageTerms))
			r.Get("/tools", s.ToolsPage)
			r.Post("/tools/reload-terms", s.ReloadTermsSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminPage(model.CapManageUsers))
			r.Get("/users", s.UsersPage)
			r.Post("/users", s.UserCreateSubmit)
			r.Post("/users/{id}/password", s.UserResetPasswordSubmit)
			r.Post("/users/{id}/role", s.UserUpdateRoleSubmit)
			r.Post("/users/{id}/delete", s.UserDeleteSubmit)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminPage(model.CapManageSettings))
			r.Get("/settings", s.SettingsPage)
			r.Post("/settings", s.SettingsSubmit)
			r.Post("/settings/reset", s.SettingsReset)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.errorPage(w, r, http.StatusNotFound, "Page not found.")
		})
	})

	return r, nil
}
