package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrDuplicateOperation = errors.New("duplicate operation")
)
