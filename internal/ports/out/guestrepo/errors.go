package guestrepo

import "errors"

var (
	// ErrNotFound indicates the requested guest does not exist.
	ErrNotFound = errors.New("guest not found")

	// ErrAlreadyExists indicates a guest already exists with the provided ID.
	ErrAlreadyExists = errors.New("guest already exists")

	// ErrEmailInUse indicates another guest already uses the (normalized) email.
	ErrEmailInUse = errors.New("guest email already in use")
)
