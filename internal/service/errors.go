// Package service holds the policy layer: ownership, active-state and
// time-window rules applied before storage is touched.
package service

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by handlers.  Storage failures are never mapped to
// one of these; they surface as wrapped driver errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("inactive user")
)

// Ledger specific not-found causes. Both match ErrNotFound.
var (
	ErrEventUnavailable = fmt.Errorf("%w: event missing, inactive or already started", ErrNotFound)
	ErrNotParticipating = fmt.Errorf("%w: no active participation", ErrNotFound)
)
