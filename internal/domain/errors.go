package domain

import "errors"

var (
	// ErrValidation input rejected before any mutation
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrInvalidTransition status change out of DISBURSED or DECLINED
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConstraintConflict a ledger uniqueness constraint rejected the insert
	ErrConstraintConflict       = errors.New("constraint conflict")
	ErrConfigurationUnavailable = errors.New("configuration unavailable")
	ErrUnauthorized             = errors.New("unauthorized")
)
