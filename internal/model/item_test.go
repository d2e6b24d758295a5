package model

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Telescope Newton 200mm", "telescope-newton-200mm"},
		{"  Binocolo  10x50 ", "binocolo-10x50"},
		{"Oculare Plössl 25mm", "oculare-plossl-25mm"},
		{"Kit: Dobson / 8\"", "kit-dobson-8"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTaxonomyValid(t *testing.T) {
	for _, tax := range Taxonomies {
		if !tax.Valid() {
			t.Errorf("expected %q to be valid", tax)
		}
	}
	if Taxonomy("color").Valid() {
		t.Error("unexpected valid taxonomy 'color'")
	}
	if TaxonomyState.QueryAlias() != "alm_state" {
		t.Errorf("unexpected alias %q", TaxonomyState.QueryAlias())
	}
}
