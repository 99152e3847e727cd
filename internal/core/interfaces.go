package core

import (
	"context"

	"docadmin-backend-go/internal/models"
)

// Actor identifies the user performing an operation, as supplied by the
// identity provider. The engine never manages credentials.
type Actor struct {
	UserID string
	Email  string
}

// PermissionService resolves users to capability sets and manages role
// definitions. Resolution order: user's assigned role, else the configured
// default role; a role literally named "admin" always grants everything.
type PermissionService interface {
	Resolve(ctx context.Context, userID string) (models.Permissions, error)
	// EnsureUser records the (userID, email) pair on first sight so role
	// assignment has a document to attach to.
	EnsureUser(ctx context.Context, userID, email string) (*models.UserRecord, error)

	ListRoles(ctx context.Context) ([]models.Role, error)
	UpsertRole(ctx context.Context, actor Actor, role models.Role) error
	DeleteRole(ctx context.Context, actor Actor, name string) error
	AssignRole(ctx context.Context, actor Actor, userID, roleName string) error
}

// AuditService appends mutation records and serves the audit trail views.
type AuditService interface {
	Record(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ForCollection(ctx context.Context, collection string, limit int) ([]models.AuditEntry, error)
	ForDocument(ctx context.Context, collection, docID string, limit int) ([]models.AuditEntry, error)
}
