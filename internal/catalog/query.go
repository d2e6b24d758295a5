package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/store"
)

// DefaultPerPage is the page size used when Filters.PerPage is zero.
const DefaultPerPage = 20

// Unbounded disables the page-size cutoff.
const Unbounded = -1

// Filters are the user-supplied inputs of a catalog search. Empty fields do
// not filter.
type Filters struct {
	Search    string `json:"s,omitempty"`
	Structure string `json:"structure,omitempty"`
	Type      string `json:"type,omitempty"`
	State     string `json:"state,omitempty"`
	Level     string `json:"level,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
	OrderBy   string `json:"orderby,omitempty"`
	Order     string `json:"order,omitempty"`
}

// Facet returns the selected slug for a taxonomy.
func (f Filters) Facet(tax model.Taxonomy) string {
	switch tax {
	case model.TaxonomyStructure:
		return f.Structure
	case model.TaxonomyType:
		return f.Type
	case model.TaxonomyState:
		return f.State
	case model.TaxonomyLevel:
		return f.Level
	}
	return ""
}

// ActiveCount is the number of non-empty search and facet inputs.
func (f Filters) ActiveCount() int {
	n := 0
	if f.Search != "" {
		n++
	}
	for _, tax := range model.Taxonomies {
		if f.Facet(tax) != "" {
			n++
		}
	}
	return n
}

// BuildQuery translates filters into an item query over published items.
// Facets are ANDed; the search term is passed through unchanged.
func BuildQuery(f Filters) store.ItemQuery {
	q := store.ItemQuery{
		Search:  f.Search,
		Status:  model.ItemStatusPublish,
		OrderBy: store.OrderByTitle,
		Order:   "ASC",
	}

	for _, tax := range model.Taxonomies {
		if slug := f.Facet(tax); slug != "" {
			q.Terms = append(q.Terms, store.TermFilter{Taxonomy: tax, Slug: slug})
		}
	}

	switch f.OrderBy {
	case store.OrderByTitle, store.OrderByDate, store.OrderByModified, store.OrderByID:
		q.OrderBy = f.OrderBy
		if strings.EqualFold(f.Order, "DESC") {
			q.Order = "DESC"
		}
	}

	switch {
	case f.PerPage == Unbounded:
		q.Limit = 0
	case f.PerPage > 0:
		q.Limit = f.PerPage
	default:
		q.Limit = DefaultPerPage
	}

	return q
}

// ParseFilters reads filters from query parameters. Facets accept both the
// plain taxonomy name and its alm_ alias; the plain name wins.
func ParseFilters(v url.Values) Filters {
	facet := func(tax model.Taxonomy) string {
		if s := strings.TrimSpace(v.Get(string(tax))); s != "" {
			return s
		}
		return strings.TrimSpace(v.Get(tax.QueryAlias()))
	}

	f := Filters{
		Search:    strings.TrimSpace(v.Get("s")),
		Structure: facet(model.TaxonomyStructure),
		Type:      facet(model.TaxonomyType),
		State:     facet(model.TaxonomyState),
		Level:     facet(model.TaxonomyLevel),
		OrderBy:   v.Get("orderby"),
		Order:     v.Get("order"),
	}
	if n, err := strconv.Atoi(v.Get("per_page")); err == nil && (n > 0 || n == Unbounded) {
		f.PerPage = n
	}
	return f
}

// Values encodes non-empty filters as query parameters.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Search != "" {
		v.Set("s", f.Search)
	}
	for _, tax := range model.Taxonomies {
		if slug := f.Facet(tax); slug != "" {
			v.Set(string(tax), slug)
		}
	}
	return v
}
