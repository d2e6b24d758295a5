package store

import "errors"

var (
	// ErrUnknownTaxonomy is returned when a taxonomy name is not one of the fixed four.
	ErrUnknownTaxonomy = errors.New("unknown taxonomy")
	// ErrUnknownTerm is returned when assigning a term slug that does not exist.
	ErrUnknownTerm = errors.New("unknown term")
	// ErrInvalidStatus is returned for item statuses outside the known set.
	ErrInvalidStatus = errors.New("invalid item status")
)
