package model

import "errors"

// Storage-level sentinel errors. Store implementations return these so the
// progression services can classify failures without knowing the backend.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
