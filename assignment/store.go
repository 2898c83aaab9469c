package assignment

import (
	"context"

	"github.com/xraph/keysmith/id"
)

// Store defines persistence operations for user-role assignments.
type Store interface {
	// CreateAssignment persists a new user-role assignment.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// DeleteAssignment removes an assignment by ID.
	DeleteAssignment(ctx context.Context, assignmentID id.AssignmentID) error

	// ListUserAssignments returns all role assignments held by a user.
	ListUserAssignments(ctx context.Context, tenantID, userID string) ([]*Assignment, error)

	// ListAssignments returns assignments matching the filter.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)
}
