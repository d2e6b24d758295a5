package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// TermsHandler handles taxonomy term endpoints.
type TermsHandler struct {
	DB      *sql.DB
	Catalog *catalog.Service
}

type createTermRequest struct {
	Taxonomy model.Taxonomy `json:"taxonomy"`
	Slug     string         `json:"slug"`
	Name     string         `json:"name"`
}

// List handles GET /api/terms. Without ?taxonomy= every taxonomy is returned,
// keyed by name. ?hide_empty=1 drops terms without published items.
func (h *TermsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hideEmpty := q.Get("hide_empty") == "1" || q.Get("hide_empty") == "true"

	if tax := model.Taxonomy(q.Get("taxonomy")); tax != "" {
		if !tax.Valid() {
			jsonError(w, r, http.StatusBadRequest, "unknown taxonomy")
			return
		}
		terms, err := h.list(r, tax, hideEmpty)
		if err != nil {
			jsonError(w, r, http.StatusInternalServerError, "failed to list terms")
			return
		}
		jsonResponse(w, r, http.StatusOK, terms)
		return
	}

	all := make(map[model.Taxonomy][]model.Term, len(model.Taxonomies))
	for _, tax := range model.Taxonomies {
		terms, err := h.list(r, tax, hideEmpty)
		if err != nil {
			jsonError(w, r, http.StatusInternalServerError, "failed to list terms")
			return
		}
		all[tax] = terms
	}
	jsonResponse(w, r, http.StatusOK, all)
}

func (h *TermsHandler) list(r *http.Request, tax model.Taxonomy, hideEmpty bool) ([]model.Term, error) {
	terms, err := store.ListTerms(r.Context(), h.DB, tax, hideEmpty)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing terms", zap.String("taxonomy", string(tax)), zap.Error(err))
		return nil, err
	}
	if terms == nil {
		terms = []model.Term{}
	}
	return terms, nil
}

// Create handles POST /api/terms.
func (h *TermsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTermRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, r, http.StatusBadRequest, "name required")
		return
	}
	if !req.Taxonomy.Valid() {
		jsonError(w, r, http.StatusBadRequest, "unknown taxonomy")
		return
	}
	slug := model.Slugify(req.Slug)
	if slug == "" {
		slug = model.Slugify(req.Name)
	}

	existing, err := store.GetTermBySlug(r.Context(), h.DB, req.Taxonomy, slug)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, "failed to create term")
		return
	}
	if existing != nil {
		jsonError(w, r, http.StatusConflict, "term already exists")
		return
	}

	term, err := store.CreateTerm(r.Context(), h.DB, req.Taxonomy, slug, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrUnknownTaxonomy) {
			jsonError(w, r, http.StatusBadRequest, "unknown taxonomy")
			return
		}
		logger.FromContext(r.Context()).Error("creating term", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to create term")
		return
	}
	h.Catalog.InvalidateFacets()

	logger.FromContext(r.Context()).Info("term created",
		zap.String("user", username(r.Context())),
		zap.String("taxonomy", string(term.Taxonomy)),
		zap.String("slug", term.Slug),
	)
	jsonResponse(w, r, http.StatusCreated, term)
}

// Delete handles DELETE /api/terms/{id}. Items lose the term.
func (h *TermsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid term id")
		return
	}

	if err := store.DeleteTerm(r.Context(), h.DB, id); err != nil {
		logger.FromContext(r.Context()).Error("deleting term", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to delete term")
		return
	}
	h.Catalog.InvalidateFacets()

	logger.FromContext(r.Context()).Info("term deleted",
		zap.String("user", username(r.Context())),
		zap.Int64("term_id", id),
	)
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "term deleted"})
}

// Schema handles GET /api/fields.
func Schema(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, r, http.StatusOK, catalog.Schema)
}
