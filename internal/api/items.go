package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/media"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// maxAttachmentBytes caps file field uploads.
const maxAttachmentBytes = 32 << 20

// ItemsHandler handles catalog item endpoints.
type ItemsHandler struct {
	DB      *sql.DB
	Catalog *catalog.Service
	Authz   *authz.Authorizer
	Media   media.Store
}

// List handles GET /api/items with the same filters as the catalog page.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.List(r.Context(), catalog.ParseFilters(r.URL.Query()))
	if err != nil {
		logger.FromContext(r.Context()).Error("listing items", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, r, http.StatusOK, page)
}

// ListAll handles GET /api/items/all: every item in any status, for editors.
func (h *ItemsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	if status != "" && !model.ValidItemStatus(status) {
		jsonError(w, r, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemQuery{
		Search:  q.Get("s"),
		Status:  status,
		OrderBy: store.OrderByModified,
		Order:   "DESC",
	})
	if err != nil {
		logger.FromContext(r.Context()).Error("listing all items", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, r, http.StatusOK, items)
}

// Get handles GET /api/items/{id}. Only published items are shown.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}
	if item.Status != model.ItemStatusPublish {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}

	detail, err := h.Catalog.Detail(r.Context(), item.Slug)
	if err != nil {
		logger.FromContext(r.Context()).Error("loading item detail", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to get item")
		return
	}
	if detail == nil {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, r, http.StatusOK, detail)
}

// BySlug handles GET /api/items/slug/{slug}.
func (h *ItemsHandler) BySlug(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Catalog.Detail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		logger.FromContext(r.Context()).Error("loading item detail", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to get item")
		return
	}
	if detail == nil {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, r, http.StatusOK, detail)
}

// Edit handles GET /api/items/{id}/edit.
func (h *ItemsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid item id")
		return
	}

	state, err := h.Catalog.EditState(r.Context(), id)
	if err != nil {
		logger.FromContext(r.Context()).Error("loading item", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to get item")
		return
	}
	if state == nil {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, r, http.StatusOK, state)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Catalog.CreateItem(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "failed to create item")
		return
	}

	logger.FromContext(r.Context()).Info("item created",
		zap.String("user", username(r.Context())),
		zap.Int64("item_id", item.ID),
	)
	jsonResponse(w, r, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid item id")
		return
	}

	var req catalog.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Catalog.UpdateItem(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err, "failed to update item")
		return
	}
	if item == nil {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}

	logger.FromContext(r.Context()).Info("item updated",
		zap.String("user", username(r.Context())),
		zap.Int64("item_id", item.ID),
	)
	jsonResponse(w, r, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id} by moving the item to the trash.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}

	if err := h.Catalog.TrashItem(r.Context(), item.ID); err != nil {
		logger.FromContext(r.Context()).Error("trashing item", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to delete item")
		return
	}

	logger.FromContext(r.Context()).Info("item trashed",
		zap.String("user", username(r.Context())),
		zap.Int64("item_id", item.ID),
	)
	jsonResponse(w, r, http.StatusOK, map[string]string{"message": "item trashed"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(media.MaxImageBytes); err != nil {
		jsonError(w, r, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, r, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	img, err := media.ProcessImage(file, 0)
	if err != nil {
		jsonError(w, r, http.StatusBadRequest, "image must be a JPEG or PNG")
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, img.Data, img.MIME); err != nil {
		logger.FromContext(r.Context()).Error("saving image", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to save image")
		return
	}

	jsonResponse(w, r, http.StatusOK, map[string]any{
		"message": "image uploaded",
		"width":   img.Width,
		"height":  img.Height,
	})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}
	if !h.Authz.Can(SubjectFrom(r.Context()), model.CapViewItem, authz.Resource{Item: item}) {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return
	}
	ServeImage(w, r, h.DB, item.ID)
}

// ServeImage writes the stored image of an item, or 404 when it has none.
func ServeImage(w http.ResponseWriter, r *http.Request, db *sql.DB, itemID int64) {
	data, mime, err := store.GetItemImage(r.Context(), db, itemID)
	if err != nil {
		logger.FromContext(r.Context()).Error("loading image", zap.Error(err))
		http.Error(w, "failed to get image", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// UploadAttachment handles POST /api/items/{id}/attachments/{field}. The file
// goes to the media store and the field records where it lives.
func (h *ItemsHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	item, ok := h.item(w, r)
	if !ok {
		return
	}

	def, ok := catalog.LookupField(chi.URLParam(r, "field"))
	if !ok || def.Type != catalog.FieldFile {
		jsonError(w, r, http.StatusBadRequest, "not a file field")
		return
	}
	if h.Media == nil {
		jsonError(w, r, http.StatusServiceUnavailable, "media storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes+1<<20)
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		jsonError(w, r, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, r, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	att, err := media.Upload(r.Context(), h.Media, item.ID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		logger.FromContext(r.Context()).Error("uploading attachment", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to store file")
		return
	}

	raw, err := json.Marshal(att)
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, "failed to store file")
		return
	}
	if err := h.Catalog.SetField(r.Context(), item.ID, def.Name, raw); err != nil {
		if delErr := h.Media.Delete(r.Context(), att.Key); delErr != nil {
			logger.FromContext(r.Context()).Warn("removing orphaned upload", zap.String("key", att.Key), zap.Error(delErr))
		}
		h.writeError(w, r, err, "failed to save field")
		return
	}

	logger.FromContext(r.Context()).Info("attachment uploaded",
		zap.String("user", username(r.Context())),
		zap.Int64("item_id", item.ID),
		zap.String("field", def.Name),
		zap.Int64("size", att.Size),
	)
	jsonResponse(w, r, http.StatusCreated, att)
}

// item loads the item named by the id URL parameter, writing 400/404/500 itself.
func (h *ItemsHandler) item(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, r, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		logger.FromContext(r.Context()).Error("getting item", zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil {
		jsonError(w, r, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

func (h *ItemsHandler) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, catalog.ErrInvalidItem), errors.Is(err, store.ErrUnknownTerm),
		errors.Is(err, store.ErrInvalidStatus), errors.Is(err, store.ErrUnknownTaxonomy):
		jsonError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrFieldsDisabled):
		jsonError(w, r, http.StatusConflict, err.Error())
	default:
		logger.FromContext(r.Context()).Error(msg, zap.Error(err))
		jsonError(w, r, http.StatusInternalServerError, msg)
	}
}
