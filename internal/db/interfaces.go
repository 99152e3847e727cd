package db

import (
	"context"
	"errors"

	"docadmin-backend-go/internal/models"
)

// ErrNotFound is returned when a requested document does not exist in the
// store. Repositories translate the driver's not-found codes into this
// sentinel so services can test with errors.Is.
var ErrNotFound = errors.New("document not found")

// BatchOpKind tags one operation inside an atomic write batch.
type BatchOpKind int

const (
	// BatchSet writes a full document. An empty DocID means the store
	// assigns a fresh ID, reported back in CommitBatch's result.
	BatchSet BatchOpKind = iota
	// BatchMerge writes only the provided fields into an existing document.
	BatchMerge
	// BatchDelete removes the document.
	BatchDelete
)

// BatchOp is one mutation inside an atomic batch. Fields is ignored for
// deletes.
type BatchOp struct {
	Kind   BatchOpKind
	DocID  string
	Fields map[string]any
}

// SchemaRepository reads the stored field schema for a collection. Schemas
// are written by the external registry; this engine only reads them.
type SchemaRepository interface {
	// GetFields returns the declared fields for a collection, unsorted.
	// Returns ErrNotFound when no schema document exists.
	GetFields(ctx context.Context, collection string) ([]models.FieldDef, error)
}

// DocumentRepository is the engine's view of the remote document store:
// full-collection listing, single-document reads, and atomic batched writes
// addressed by (collection, documentID).
type DocumentRepository interface {
	List(ctx context.Context, collection string) ([]models.Document, error)
	Get(ctx context.Context, collection, docID string) (*models.Document, error)
	// CommitBatch applies all ops as a single atomic write and returns the
	// document IDs touched, in op order (store-assigned for empty DocIDs).
	CommitBatch(ctx context.Context, collection string, ops []BatchOp) ([]string, error)
}

// AuditRepository appends to and reads from the append-only audit
// collection. Entries are never updated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, entry models.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ListByCollection(ctx context.Context, collection string, limit int) ([]models.AuditEntry, error)
	ListByDocument(ctx context.Context, collection, docID string, limit int) ([]models.AuditEntry, error)
}

// RoleRepository stores role definitions and per-user role assignments.
type RoleRepository interface {
	GetRole(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	SetRole(ctx context.Context, role models.Role) error
	DeleteRole(ctx context.Context, name string) error

	GetUserRecord(ctx context.Context, userID string) (*models.UserRecord, error)
	SetUserRecord(ctx context.Context, record models.UserRecord) error
}
