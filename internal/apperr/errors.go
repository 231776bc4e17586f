package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRootNotFound = errors.New("root not found")
	ErrNoIndex      = errors.New("index not configured")
)
