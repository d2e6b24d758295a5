package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// facetView is one filter select on the catalog page.
type facetView struct {
	Taxonomy model.Taxonomy
	Selected string
	Options  []model.Term
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	f := catalog.ParseFilters(r.URL.Query())
	if f.PerPage == 0 {
		// The catalog page lists every match unless a page size is asked for.
		f.PerPage = catalog.Unbounded
	}

	data := s.pageData(r, "Catalog")
	page, err := s.Catalog.List(r.Context(), f)
	if err != nil {
		log.Error("listing catalog", zap.Error(err))
		data.Error = "The catalog could not be loaded."
		page = &catalog.Page{Filters: f}
	}

	facets := make([]facetView, 0, len(model.Taxonomies))
	for _, tax := range model.Taxonomies {
		facets = append(facets, facetView{
			Taxonomy: tax,
			Selected: f.Facet(tax),
			Options:  page.Facets[tax],
		})
	}

	nonce, err := auth.GenerateNonce(s.JWTSecret, auth.ActionAutocomplete, subject(r.Context()).UserID, s.NonceTTL)
	if err != nil {
		log.Error("generating autocomplete nonce", zap.Error(err))
	}

	s.Templates.Render(w, r, "items.html", &struct {
		*PageData
		Page              *catalog.Page
		Facets            []facetView
		ActiveFilters     int
		AutocompleteNonce string
	}{
		PageData:          data,
		Page:              page,
		Facets:            facets,
		ActiveFilters:     f.ActiveCount(),
		AutocompleteNonce: nonce,
	})
}

// ItemDetailPage handles GET /items/{slug} and GET /item?item=slug. An
// explicit ?slug= wins over ?item=, which wins over the route.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slug := catalog.ResolveSlug(q.Get("slug"), q.Get("item"), chi.URLParam(r, "slug"))

	var detail *catalog.Detail
	if slug != "" {
		var err error
		detail, err = s.Catalog.Detail(r.Context(), slug)
		if err != nil {
			logger.FromContext(r.Context()).Error("loading item detail", zap.String("slug", slug), zap.Error(err))
		}
	}
	if detail == nil {
		s.errorPage(w, r, http.StatusNotFound, "Item not found.")
		return
	}

	s.Templates.Render(w, r, "item_detail.html", &struct {
		*PageData
		Detail *catalog.Detail
	}{
		PageData: s.pageData(r, detail.Item.Title),
		Detail:   detail,
	})
}

// ItemImage handles GET /items/{slug}/image.
func (s *Server) ItemImage(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItemBySlug(r.Context(), s.DB, chi.URLParam(r, "slug"))
	if err != nil {
		logger.FromContext(r.Context()).Error("getting item", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil || !s.Authz.Can(subject(r.Context()), model.CapViewItem, authz.Resource{Item: item}) {
		http.NotFound(w, r)
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), s.DB, item.ID)
	if err != nil {
		logger.FromContext(r.Context()).Error("getting image", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logger.FromContext(r.Context()).Warn("writing image response", zap.Error(err))
	}
}
