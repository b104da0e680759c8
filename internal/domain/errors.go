package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound             = errors.New("domain: not found")
	ErrSessionNotFound      = errors.New("domain: session not found")
	ErrSessionClosed        = errors.New("domain: session closed")
	ErrAlreadySecured       = errors.New("domain: session already secured")
	ErrIdentityMismatch     = errors.New("domain: identity mismatch")
	ErrGoalEvidenceMissing  = errors.New("domain: goal evidence missing")
	ErrInvalidGoalState     = errors.New("domain: invalid goal state")
	ErrInvalidResumeToken   = errors.New("domain: invalid or expired resume token")
	ErrConflictHold         = errors.New("domain: conflict hold requires override")
	ErrNoConflictToOverride = errors.New("domain: no detected conflict to override")
)
