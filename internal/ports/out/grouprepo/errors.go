package grouprepo

import "errors"

var (
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyExists = errors.New("group already exists")
)
