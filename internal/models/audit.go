package models

import "time"

// Audit actions. Exactly one per mutated document, including bulk edits.
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// ChangeSet carries the full before/after snapshots of one mutation.
// Before is empty for creates; After holds only the id for deletes.
type ChangeSet struct {
	Before map[string]any `json:"before" firestore:"before"`
	After  map[string]any `json:"after" firestore:"after"`
}

// AuditEntry is an immutable record of one document mutation. Entries are
// appended synchronously with the primary write and never mutated or deleted.
// Timestamp is authoritative write time, set server-side via serverTimestamp.
type AuditEntry struct {
	ID         string    `json:"id" firestore:"-"`
	Timestamp  time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string    `json:"userId" firestore:"userId"`
	UserEmail  string    `json:"userEmail" firestore:"userEmail"`
	Action     string    `json:"action" firestore:"action"`
	Collection string    `json:"collection" firestore:"collection"`
	DocumentID string    `json:"documentId" firestore:"documentId"`
	Changes    ChangeSet `json:"changes" firestore:"changes"`
}
