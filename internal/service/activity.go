package service

import (
	"context"

	"github.com/granada-sport/server/internal/queue"
)

// ActivityRecorder receives the audit trail of successful mutations.
type ActivityRecorder interface {
	Record(ctx context.Context, ev queue.ActivityEvent) error
}

// ListingInvalidator drops cached public event listings.
type ListingInvalidator interface {
	InvalidateListings(ctx context.Context) error
}

type nopActivity struct{}

func (nopActivity) Record(context.Context, queue.ActivityEvent) error { return nil }

type nopInvalidator struct{}

func (nopInvalidator) InvalidateListings(context.Context) error { return nil }
