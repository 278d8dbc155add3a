package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	// ErrTransient marks store timeouts and throttling. Callers may retry with backoff.
	ErrTransient = errors.New("temporarily unavailable")
	// ErrUnavailable marks a collaborator that is not configured (e.g. no mail transport).
	ErrUnavailable = errors.New("service unavailable")
)
