package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/metrics"
)

// AutocompleteHandler answers search-as-you-type lookups.
type AutocompleteHandler struct {
	Catalog   *catalog.Service
	JWTSecret string
	// RequireNonce enforces the alm_autocomplete anti-forgery token.
	RequireNonce bool

	limiter *rateLimiter
}

// NewAutocompleteHandler creates the handler. ratePerMin <= 0 disables rate limiting.
func NewAutocompleteHandler(svc *catalog.Service, secret string, requireNonce bool, ratePerMin int) *AutocompleteHandler {
	return &AutocompleteHandler{
		Catalog:      svc,
		JWTSecret:    secret,
		RequireNonce: requireNonce,
		limiter:      newRateLimiter(ratePerMin),
	}
}

type autocompleteRequest struct {
	Term  string `json:"term"`
	Nonce string `json:"nonce"`
}

// Lookup handles POST /api/items/autocomplete. The body is a form or JSON
// with term and nonce. Failed lookups answer with an empty list.
func (h *AutocompleteHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if !h.limiter.Allow(clientIP(r)) {
		metrics.AutocompleteRejectedTotal.WithLabelValues("rate").Inc()
		jsonError(w, r, http.StatusTooManyRequests, "too many requests")
		return
	}

	var req autocompleteRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			log.Debug("autocomplete body rejected", zap.Error(err))
			jsonResponse(w, r, http.StatusOK, []catalog.Suggestion{})
			return
		}
	} else {
		req.Term = r.FormValue("term")
		req.Nonce = r.FormValue("nonce")
	}

	if h.RequireNonce {
		userID := SubjectFrom(r.Context()).UserID
		if err := auth.VerifyNonce(h.JWTSecret, req.Nonce, auth.ActionAutocomplete, userID); err != nil {
			metrics.AutocompleteRejectedTotal.WithLabelValues("nonce").Inc()
			log.Debug("autocomplete nonce rejected", zap.Error(err))
			jsonError(w, r, http.StatusForbidden, "invalid nonce")
			return
		}
	}

	results, err := h.Catalog.Autocomplete(r.Context(), req.Term)
	if err != nil {
		log.Error("autocomplete lookup", zap.Error(err))
		results = []catalog.Suggestion{}
	}
	jsonResponse(w, r, http.StatusOK, results)
}
