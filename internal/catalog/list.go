package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// Page is a rendered catalog list.
type Page struct {
	Filters Filters                         `json:"filters"`
	Items   []*ViewModel                    `json:"items"`
	Facets  map[model.Taxonomy][]model.Term `json:"facets"`
}

// List runs filters and assembles every match.
func (s *Service) List(ctx context.Context, f Filters) (*Page, error) {
	items, err := store.ListItems(ctx, s.DB, BuildQuery(f))
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	page := &Page{Filters: f, Items: make([]*ViewModel, 0, len(items))}
	for _, item := range items {
		vm, err := s.assemble(ctx, &item)
		if err != nil {
			s.log.Warn("skipping list entry", zap.Int64("item_id", item.ID), zap.Error(err))
			continue
		}
		if vm != nil {
			page.Items = append(page.Items, vm)
		}
	}

	page.Facets, err = s.FacetOptions(ctx)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FacetOptions returns, per taxonomy, the terms carried by at least one
// published item. Results are cached briefly.
func (s *Service) FacetOptions(ctx context.Context) (map[model.Taxonomy][]model.Term, error) {
	const key = "facets"
	if v, ok := s.facets.Get(key); ok {
		return v.(map[model.Taxonomy][]model.Term), nil
	}

	out := make(map[model.Taxonomy][]model.Term, len(model.Taxonomies))
	for _, tax := range model.Taxonomies {
		terms, err := store.ListTerms(ctx, s.DB, tax, true)
		if err != nil {
			return nil, fmt.Errorf("listing %s facet: %w", tax, err)
		}
		out[tax] = terms
	}

	s.facets.SetDefault(key, out)
	return out, nil
}

// ResolveSlug picks the slug of the item a detail page shows: an explicit
// slug wins over the query parameter, which wins over the route context.
func ResolveSlug(explicit, query, route string) string {
	for _, s := range []string{explicit, query, route} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Detail is a rendered item detail page.
type Detail struct {
	Item   *ViewModel `json:"item"`
	Fields []Field    `json:"fields"`
}

// Detail resolves slug and assembles the item with its custom fields, or
// returns nil when no published item has that slug.
func (s *Service) Detail(ctx context.Context, slug string) (*Detail, error) {
	vm, err := s.ViewModelBySlug(ctx, slug)
	if err != nil || vm == nil {
		return nil, err
	}

	fields, err := s.CustomFields(ctx, vm.ID)
	if err != nil {
		s.log.Warn("loading custom fields", zap.Int64("item_id", vm.ID), zap.Error(err))
		fields = []Field{}
	}
	return &Detail{Item: vm, Fields: fields}, nil
}
