package model

// Taxonomy names one of the four fixed classification axes of the catalog.
type Taxonomy string

// Taxonomies.
const (
	TaxonomyStructure Taxonomy = "structure"
	TaxonomyType      Taxonomy = "type"
	TaxonomyState     Taxonomy = "state"
	TaxonomyLevel     Taxonomy = "level"
)

// Taxonomies lists every taxonomy in display order.
var Taxonomies = []Taxonomy{TaxonomyStructure, TaxonomyType, TaxonomyState, TaxonomyLevel}

// Valid reports whether t is one of the fixed taxonomies.
func (t Taxonomy) Valid() bool {
	switch t {
	case TaxonomyStructure, TaxonomyType, TaxonomyState, TaxonomyLevel:
		return true
	}
	return false
}

// QueryAlias is the legacy query-string name of the taxonomy (alm_structure, ...).
func (t Taxonomy) QueryAlias() string {
	return "alm_" + string(t)
}

// Well-known structure terms.
const (
	StructureComponent = "component"
	StructureKit       = "kit"
)

// Term is a named value within a taxonomy.
type Term struct {
	ID       int64    `json:"id"`
	Taxonomy Taxonomy `json:"taxonomy"`
	Slug     string   `json:"slug"`
	Name     string   `json:"name"`
	Count    int      `json:"count,omitempty"`
}

// StateClasses maps state slugs to the CSS classes used by the front end.
var StateClasses = map[string]string{
	"available":   "alm-state-available",
	"on-loan":     "alm-state-on-loan",
	"maintenance": "alm-state-maintenance",
	"retired":     "alm-state-retired",
}
