package app

import (
	"errors"

	"healthhub/internal/store"
)

// Service-level outcomes the HTTP layer maps onto response codes. Conflict is
// reported through store.ErrConflict so both the pre-check and the unique
// index surface the same error.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = store.ErrConflict
)
