package catalog

import (
	"context"
	"fmt"
	"html"
	"html/template"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// ViewModel is a read-only presentation snapshot of a published item.
type ViewModel struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Permalink string        `json:"permalink"`
	Content   template.HTML `json:"content"`
	Thumbnail template.HTML `json:"thumbnail"`
	Structure []string      `json:"structure"`
	Type      []string      `json:"type"`
	State     []string      `json:"state"`
	Level     []string      `json:"level"`

	// StateSlug is the slug of the first State term, if any.
	StateSlug string `json:"state_slug,omitempty"`
}

// StateClass is the CSS class of the item's state, or "" when unknown.
func (vm *ViewModel) StateClass() string {
	return model.StateClasses[vm.StateSlug]
}

// ViewModel returns the view-model of a published item, or nil when the id
// does not resolve to a published item.
func (s *Service) ViewModel(ctx context.Context, id int64) (*ViewModel, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, fmt.Errorf("loading item %d: %w", id, err)
	}
	return s.assemble(ctx, item)
}

// ViewModelBySlug is ViewModel keyed by slug.
func (s *Service) ViewModelBySlug(ctx context.Context, slug string) (*ViewModel, error) {
	if slug == "" {
		return nil, nil
	}
	item, err := store.GetItemBySlug(ctx, s.DB, slug)
	if err != nil {
		return nil, fmt.Errorf("loading item %q: %w", slug, err)
	}
	return s.assemble(ctx, item)
}

func (s *Service) assemble(ctx context.Context, item *model.Item) (*ViewModel, error) {
	if item == nil || item.Status != model.ItemStatusPublish {
		return nil, nil
	}

	terms, err := store.ItemTerms(ctx, s.DB, item.ID)
	if err != nil {
		return nil, fmt.Errorf("loading terms of item %d: %w", item.ID, err)
	}

	vm := &ViewModel{
		ID:        item.ID,
		Title:     item.Title,
		Slug:      item.Slug,
		Permalink: s.Permalink(item.Slug),
		Content:   s.renderContent(item.Body),
		Thumbnail: s.thumbnail(item),
		Structure: termNames(terms[model.TaxonomyStructure]),
		Type:      termNames(terms[model.TaxonomyType]),
		State:     termNames(terms[model.TaxonomyState]),
		Level:     termNames(terms[model.TaxonomyLevel]),
	}
	if states := terms[model.TaxonomyState]; len(states) > 0 {
		vm.StateSlug = states[0].Slug
	}
	return vm, nil
}

func (s *Service) thumbnail(item *model.Item) template.HTML {
	if item.HasImage() {
		return template.HTML(fmt.Sprintf(`<img src="%s" alt="%s" class="alm-thumbnail">`,
			html.EscapeString(s.ImageURL(item)), html.EscapeString(item.Title)))
	}
	return template.HTML(fmt.Sprintf(`<img src="%s" alt="%s" class="alm-default-thumbnail">`,
		html.EscapeString(s.DefaultThumbnailURL()), html.EscapeString(item.Title)))
}

func termNames(terms []model.Term) []string {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		names = append(names, t.Name)
	}
	return names
}
