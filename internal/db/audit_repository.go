package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"docadmin-backend-go/internal/models"
)

const auditCollection = "audit_logs"

// firestoreAuditRepository implements AuditRepository. The audit collection
// is append-only: this repository exposes no update or delete.
type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates an AuditRepository backed by Firestore.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

// Create appends one audit entry. Timestamp is populated server-side via the
// serverTimestamp tag on models.AuditEntry.
func (r *firestoreAuditRepository) Create(ctx context.Context, entry models.AuditEntry) error {
	if entry.Action == "" || entry.Collection == "" {
		return errors.New("audit entry requires an action and a collection")
	}
	if _, err := r.client.Collection(auditCollection).NewDoc().Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry (%s %s/%s): %w",
			entry.Action, entry.Collection, entry.DocumentID, err)
	}
	return nil
}

func (r *firestoreAuditRepository) ListRecent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	q := r.client.Collection(auditCollection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, q)
}

func (r *firestoreAuditRepository) ListByCollection(ctx context.Context, collection string, limit int) ([]models.AuditEntry, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty for ListByCollection")
	}
	q := r.client.Collection(auditCollection).
		Where("collection", "==", collection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, q)
}

func (r *firestoreAuditRepository) ListByDocument(ctx context.Context, collection, docID string, limit int) ([]models.AuditEntry, error) {
	if collection == "" || docID == "" {
		return nil, errors.New("collection and docID cannot be empty for ListByDocument")
	}
	q := r.client.Collection(auditCollection).
		Where("collection", "==", collection).
		Where("documentId", "==", docID).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit)
	return r.collect(ctx, q)
}

func (r *firestoreAuditRepository) collect(ctx context.Context, q firestore.Query) ([]models.AuditEntry, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var entries []models.AuditEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
		}
		var entry models.AuditEntry
		if err := snap.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode audit entry %q: %w", snap.Ref.ID, err)
		}
		entry.ID = snap.Ref.ID
		entries = append(entries, entry)
	}
	return entries, nil
}
