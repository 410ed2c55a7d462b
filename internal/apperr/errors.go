package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrNotText     = errors.New("not valid UTF-8 text")
	ErrInvalidPath = errors.New("invalid path")
	ErrBrokenLinks = errors.New("found broken wikilinks")
)
