package store

import domainerrors "github.com/openarklib/openark-server/internal/errors"

// The store reuses the domain error sentinels so callers can match on a
// single taxonomy with errors.Is regardless of which layer produced the
// failure.
var (
	ErrNotFound      = domainerrors.ErrNotFound
	ErrAlreadyExists = domainerrors.ErrAlreadyExists
)
