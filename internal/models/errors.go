package models

import "errors"

// Error kinds surfaced by the services. Callers match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrConflictingRequest = errors.New("conflicting pending request")
	ErrValidation         = errors.New("validation failed")
	ErrBonusNotEligible   = errors.New("bonus not eligible")
	ErrMissingTierData    = errors.New("missing tier data")
)
