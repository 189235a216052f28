package model

import "errors"

// Error kinds. Operations wrap one of these with detail, e.g.
// fmt.Errorf("%w: end time must be after start time", ErrValidation),
// and callers classify with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthorization   = errors.New("not authorized")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
)
