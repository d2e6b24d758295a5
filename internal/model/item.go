package model

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Item is a lendable catalog entry.
type Item struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Status    string    `json:"status"`
	ImageMime string    `json:"image_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasImage reports whether the item carries its own image.
func (i *Item) HasImage() bool {
	return i.ImageMime != ""
}

// Item statuses.
const (
	ItemStatusPublish = "publish"
	ItemStatusDraft   = "draft"
	ItemStatusPending = "pending"
	ItemStatusPrivate = "private"
	ItemStatusTrash   = "trash"
)

// ValidItemStatus reports whether status is one of the known item statuses.
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusPublish, ItemStatusDraft, ItemStatusPending, ItemStatusPrivate, ItemStatusTrash:
		return true
	}
	return false
}

// Slugify turns a title into a lowercase, dash-separated URL segment.
// Accents are folded to their base letters; anything else non-alphanumeric
// collapses into a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
