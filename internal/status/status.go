package status

import "errors"

var (
	ErrNameRequired    = errors.New("waitline: name must not be empty")
	ErrContactRequired = errors.New("waitline: contact must not be empty")
	ErrInvalidGuests   = errors.New("waitline: guest count must be positive")
	ErrInvalidHall     = errors.New("waitline: unknown hall")
	ErrInvalidSegment  = errors.New("waitline: unknown segment")
	ErrInvalidChannel  = errors.New("waitline: unknown notify channel")
	ErrEntryNotFound   = errors.New("waitline: entry not found")
	ErrNoCurrentEntry  = errors.New("waitline: no current entry")
)
