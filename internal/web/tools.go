package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// termCount is one row of the vocabulary summary on the tools page.
type termCount struct {
	Taxonomy model.Taxonomy
	Count    int
}

// ToolsPage handles GET /tools.
func (s *Server) ToolsPage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	data := s.pageData(r, "Tools")

	switch r.URL.Query().Get("status") {
	case "success":
		data.Success = "Default terms reloaded."
	case "error":
		data.Error = "Default terms could not be reloaded."
	}

	counts := make([]termCount, 0, len(model.Taxonomies))
	for _, tax := range model.Taxonomies {
		n, err := store.CountTerms(r.Context(), s.DB, tax)
		if err != nil {
			log.Error("counting terms", zap.String("taxonomy", string(tax)), zap.Error(err))
		}
		counts = append(counts, termCount{Taxonomy: tax, Count: n})
	}

	nonce, err := auth.GenerateNonce(s.JWTSecret, auth.ActionReloadTerms, subject(r.Context()).UserID, s.NonceTTL)
	if err != nil {
		log.Error("generating nonce", zap.Error(err))
	}

	s.Templates.Render(w, r, "tools.html", &struct {
		*PageData
		Terms []termCount
		Nonce string
	}{
		PageData: data,
		Terms:    counts,
		Nonce:    nonce,
	})
}

// ReloadTermsSubmit handles POST /tools/reload-terms.
func (s *Server) ReloadTermsSubmit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if err := auth.VerifyNonce(s.JWTSecret, r.FormValue("nonce"), auth.ActionReloadTerms, subject(r.Context()).UserID); err != nil {
		log.Warn("reload terms nonce rejected", zap.Error(err))
		http.Redirect(w, r, "/tools?status=error", http.StatusSeeOther)
		return
	}

	res, err := s.Seeder.Reload(r.Context())
	if err != nil {
		log.Error("reloading default terms", zap.Error(err))
		http.Redirect(w, r, "/tools?status=error", http.StatusSeeOther)
		return
	}
	s.Catalog.InvalidateFacets()

	log.Info("default terms reloaded", zap.Int("created", res.Created), zap.Int("existing", res.Existing))
	http.Redirect(w, r, "/tools?status=success", http.StatusSeeOther)
}
