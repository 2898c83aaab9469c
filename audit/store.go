package audit

import (
	"context"
	"time"
)

// Store defines persistence operations for cascade audit entries.
type Store interface {
	// CreateAuditEntry persists a new audit record.
	CreateAuditEntry(ctx context.Context, e *Entry) error

	// ListAuditEntries returns audit records matching the filter.
	ListAuditEntries(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// PurgeAuditEntries removes records older than the cutoff and returns
	// the number removed.
	PurgeAuditEntries(ctx context.Context, before time.Time) (int64, error)
}
