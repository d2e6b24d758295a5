package catalog

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/erazemk/assetlend/internal/metrics"
	"github.com/erazemk/assetlend/internal/store"
)

// Autocomplete limits.
const (
	AutocompleteMinChars   = 3
	AutocompleteMaxResults = 5
	DescriptionWords       = 20
	DescriptionMore        = "..."
)

// Suggestion is one autocomplete result.
type Suggestion struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Structure   string `json:"structure"`
	Type        string `json:"type"`
	Permalink   string `json:"permalink"`
}

// Autocomplete searches published items for term. Terms shorter than
// AutocompleteMinChars yield an empty list. Items that fail to assemble are
// skipped. The result is never nil.
func (s *Service) Autocomplete(ctx context.Context, term string) ([]Suggestion, error) {
	out := []Suggestion{}

	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < AutocompleteMinChars {
		return out, nil
	}

	metrics.AutocompleteQueriesTotal.Inc()

	items, err := store.ListItems(ctx, s.DB, BuildQuery(Filters{Search: term, PerPage: AutocompleteMaxResults}))
	if err != nil {
		return out, fmt.Errorf("searching items: %w", err)
	}

	for _, item := range items {
		vm, err := s.assemble(ctx, &item)
		if err != nil {
			s.log.Warn("skipping autocomplete result", zap.Int64("item_id", item.ID), zap.Error(err))
			continue
		}
		if vm == nil {
			continue
		}
		out = append(out, Suggestion{
			ID:          vm.ID,
			Title:       vm.Title,
			Description: TrimWords(StripTags(string(vm.Content)), DescriptionWords, DescriptionMore),
			Structure:   strings.Join(vm.Structure, ", "),
			Type:        strings.Join(vm.Type, ", "),
			Permalink:   vm.Permalink,
		})
	}

	if len(out) == 0 {
		metrics.AutocompleteEmptyTotal.Inc()
	}
	return out, nil
}
