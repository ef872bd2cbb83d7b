package types

import "errors"

// Domain errors shared across packages
var (
	ErrIndexingInProgress = errors.New("indexing already in progress")
	ErrEmptyQuery         = errors.New("query cannot be empty")
	ErrInvalidRoot        = errors.New("root must be an existing directory")
)
