package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/media"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/seeder"
	"github.com/erazemk/assetlend/internal/settings"
)

// Deps are the collaborators shared by the API handlers.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Catalog   *catalog.Service
	Authz     *authz.Authorizer
	Settings  *settings.Manager
	Seeder    *seeder.Installer
	Media     media.Store

	SessionTTL             time.Duration
	NonceTTL               time.Duration
	AutocompleteNonce      bool
	AutocompleteRatePerMin int
}

// NewRouter creates the API router. Mount it under /api.
func NewRouter(d Deps) chi.Router {
	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Authz: d.Authz, SessionTTL: d.SessionTTL, NonceTTL: d.NonceTTL}
	usersHandler := &UsersHandler{DB: d.DB}
	itemsHandler := &ItemsHandler{DB: d.DB, Catalog: d.Catalog, Authz: d.Authz, Media: d.Media}
	autocomplete := NewAutocompleteHandler(d.Catalog, d.JWTSecret, d.AutocompleteNonce, d.AutocompleteRatePerMin)
	termsHandler := &TermsHandler{DB: d.DB, Catalog: d.Catalog}
	toolsHandler := &ToolsHandler{Seeder: d.Seeder, Catalog: d.Catalog, JWTSecret: d.JWTSecret}
	settingsHandler := &SettingsHandler{Settings: d.Settings}

	can := func(c model.Capability) func(http.Handler) http.Handler {
		return Require(d.Authz, c)
	}

	r := chi.NewRouter()
	r.Use(OptionalAuth(d.JWTSecret, d.DB))

	r.Post("/auth/login", authHandler.Login)
	r.Get("/auth/me", authHandler.Me)
	r.Get("/auth/nonce", authHandler.Nonce)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/auth/logout", authHandler.Logout)
		r.Put("/auth/password", authHandler.ChangePassword)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(can(model.CapManageUsers))
		r.Get("/", usersHandler.List)
		r.Post("/", usersHandler.Create)
		r.Get("/{id}", usersHandler.Get)
		r.Put("/{id}", usersHandler.Update)
		r.Put("/{id}/password", usersHandler.ResetPassword)
		r.Delete("/{id}", usersHandler.Delete)
	})

	r.Route("/items", func(r chi.Router) {
		r.With(can(model.CapViewItems)).Get("/", itemsHandler.List)
		r.With(can(model.CapViewItems)).Post("/autocomplete", autocomplete.Lookup)
		r.With(can(model.CapViewItem)).Get("/slug/{slug}", itemsHandler.BySlug)
		r.With(can(model.CapEditItem)).Get("/all", itemsHandler.ListAll)
		r.With(can(model.CapCreateItem)).Post("/", itemsHandler.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.With(can(model.CapViewItem)).Get("/", itemsHandler.Get)
			r.With(can(model.CapViewItem)).Get("/image", itemsHandler.GetImage)

			r.Group(func(r chi.Router) {
				r.Use(can(model.CapEditItem))
				r.Get("/edit", itemsHandler.Edit)
				r.Put("/", itemsHandler.Update)
				r.Delete("/", itemsHandler.Delete)
				r.Put("/image", itemsHandler.UploadImage)
				r.Post("/attachments/{field}", itemsHandler.UploadAttachment)
			})
		})
	})

	r.With(can(model.CapViewItems)).Get("/terms", termsHandler.List)
	r.With(can(model.CapManageTerms)).Post("/terms", termsHandler.Create)
	r.With(can(model.CapManageTerms)).Delete("/terms/{id}", termsHandler.Delete)
	r.With(can(model.CapViewItems)).Get("/fields", Schema)

	r.With(can(model.CapManageTerms)).Post("/tools/reload-terms", toolsHandler.ReloadTerms)

	r.Route("/settings", func(r chi.Router) {
		r.Use(can(model.CapManageSettings))
		r.Get("/", settingsHandler.Get)
		r.Put("/", settingsHandler.Update)
		r.Delete("/", settingsHandler.Reset)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, r, http.StatusNotFound, "not found")
	})
	return r
}
