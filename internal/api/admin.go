package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/auth"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/seeder"
	"github.com/erazemk/assetlend/internal/settings"
)

// ToolsHandler runs maintenance actions.
type ToolsHandler struct {
	Seeder    *seeder.Installer
	Catalog   *catalog.Service
	JWTSecret string
}

type nonceRequest struct {
	Nonce string `json:"nonce"`
}

// ReloadTerms handles POST /api/tools/reload-terms. It needs an
// alm_reload_terms nonce in the JSON body or the form.
func (h *ToolsHandler) ReloadTerms(w http.ResponseWriter, r *http.Request) {
	var req nonceRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	} else {
		req.Nonce = r.FormValue("nonce")
	}

	userID := SubjectFrom(r.Context()).UserID
	if err := auth.VerifyNonce(h.JWTSecret, req.Nonce, auth.ActionReloadTerms, userID); err != nil {
		jsonError(w, r, http.StatusForbidden, "invalid nonce")
		return
	}

	res, err := h.Seeder.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reloading default terms", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to reload terms")
		return
	}
	h.Catalog.InvalidateFacets()

	logger.FromContext(r.Context()).Info("default terms reloaded",
		zap.String("user", username(r.Context())),
		zap.Int("created", res.Created),
	)
	jsonResponse(w, r, http.StatusOK, res)
}

// SettingsHandler exposes the dotted-key settings.
type SettingsHandler struct {
	Settings *settings.Manager
}

// Get handles GET /api/settings, or a single value with ?key=.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		v, err := h.Settings.Get(r.Context(), key, nil)
		if err != nil {
			logger.FromContext(r.Context()).Error("reading setting", zap.Error(err))
			jsonError(w, r, http.StatusInternalServerError, "failed to read settings")
			return
		}
		jsonResponse(w, r, http.StatusOK, map[string]any{"key": key, "value": v})
		return
	}

	all, err := h.Settings.All(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("reading settings", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to read settings")
		return
	}
	jsonResponse(w, r, http.StatusOK, all)
}

// Update handles PUT /api/settings with a JSON object of dotted keys.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decodeJSON(r, &values); err != nil || len(values) == 0 {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Settings.Update(r.Context(), values); err != nil {
		if errors.Is(err, settings.ErrSectionKey) || errors.Is(err, settings.ErrUnknownKey) || errors.Is(err, settings.ErrInvalidValue) {
			jsonError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		logger.FromContext(r.Context()).Error("updating settings", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to update settings")
		return
	}

	logger.FromContext(r.Context()).Info("settings updated",
		zap.String("user", username(r.Context())),
		zap.Int("keys", len(values)),
	)
	h.Get(w, r)
}

// Reset handles DELETE /api/settings.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Reset(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("resetting settings", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to reset settings")
		return
	}
	logger.FromContext(r.Context()).Info("settings reset", zap.String("user", username(r.Context())))
	h.Get(w, r)
}
