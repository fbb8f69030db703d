package batch

import "errors"

var (
	ErrInvalidCode       = errors.New("batch code must not be empty")
	ErrDuplicateCode     = errors.New("batch code already in use")
	ErrInvalidSupervisor = errors.New("supervisor must be an active supervisor or admin")
	ErrReasonRequired    = errors.New("cancellation requires a reason")
)
