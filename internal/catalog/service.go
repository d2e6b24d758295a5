package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/model"
)

// FieldSource provides custom field values. The SQLite store.Fields is the
// production implementation.
type FieldSource interface {
	ItemFields(ctx context.Context, itemID int64) (map[string]json.RawMessage, error)
	FindReferencing(ctx context.Context, field string, itemID int64, limit int) ([]model.Item, error)
}

// Service assembles catalog queries and view-models.
type Service struct {
	DB *sql.DB
	// Fields is nil when custom fields are disabled.
	Fields FieldSource
	// BaseURL prefixes permalinks and static asset URLs; empty for relative URLs.
	BaseURL        string
	ContentFilters []ContentFilter

	log    *zap.Logger
	facets *cache.Cache
}

// NewService creates a catalog service. fields may be nil.
func NewService(db *sql.DB, fields FieldSource, baseURL string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:      db,
		Fields:  fields,
		BaseURL: baseURL,
		log:     log.Named("catalog"),
		facets:  cache.New(time.Minute, 10*time.Minute),
	}
}

// InvalidateFacets drops cached facet options after items or terms change.
func (s *Service) InvalidateFacets() {
	s.facets.Flush()
}

// Permalink returns the canonical URL of an item.
func (s *Service) Permalink(slug string) string {
	return s.BaseURL + "/items/" + slug
}

// DefaultThumbnailURL is the placeholder shown for items without an image.
func (s *Service) DefaultThumbnailURL() string {
	return s.BaseURL + "/static/img/default-item.svg"
}

// ImageURL is where an item's own image is served.
func (s *Service) ImageURL(item *model.Item) string {
	return s.BaseURL + "/items/" + item.Slug + "/image"
}
