package service

import (
	"strings"
	"time"
)

// Clock returns the current time.  Services store UTC timestamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// Pagination bounds for list operations.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Page is an offset/limit window.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
