package denylist

import (
	"context"
	"time"
)

// Store defines persistence operations for the deny list.
//
// UpsertEntry is idempotent: registering a (tenant, kind, value) that is
// already denied extends the existing entry rather than failing, so
// overlapping cascades converge instead of erroring.
type Store interface {
	// UpsertEntry registers or refreshes a deny-list entry.
	UpsertEntry(ctx context.Context, e *Entry) error

	// IsDenied reports whether an unexpired entry exists for the value.
	IsDenied(ctx context.Context, tenantID string, kind Kind, value string, now time.Time) (bool, error)

	// ListEntries returns deny-list entries matching the filter.
	ListEntries(ctx context.Context, filter *ListFilter) ([]*Entry, error)

	// PurgeExpiredEntries removes entries that expired before the cutoff
	// and returns the number removed.
	PurgeExpiredEntries(ctx context.Context, before time.Time) (int64, error)
}
