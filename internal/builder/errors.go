package builder

import "errors"

var (
	ErrInvalidUnitPath = errors.New("invalid compilation unit path")
	ErrNoSourceFiles   = errors.New("no source files")
)
