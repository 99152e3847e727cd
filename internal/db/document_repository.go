package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docadmin-backend-go/internal/models"
)

// firestoreDocumentRepository implements DocumentRepository for arbitrary,
// runtime-named collections.
type firestoreDocumentRepository struct {
	client *firestore.Client
}

// NewFirestoreDocumentRepository creates a DocumentRepository backed by Firestore.
func NewFirestoreDocumentRepository(client *firestore.Client) DocumentRepository {
	return &firestoreDocumentRepository{client: client}
}

// List fetches the full document set of a collection. The engine caches the
// result; pagination and filtering happen in memory over that cache.
func (r *firestoreDocumentRepository) List(ctx context.Context, collection string) ([]models.Document, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty for List")
	}

	iter := r.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	var docs []models.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate documents of %q: %w", collection, err)
		}
		docs = append(docs, models.Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs, nil
}

func (r *firestoreDocumentRepository) Get(ctx context.Context, collection, docID string) (*models.Document, error) {
	if collection == "" || docID == "" {
		return nil, errors.New("collection and docID cannot be empty for Get")
	}
	snap, err := r.client.Collection(collection).Doc(docID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("document %s/%s not found: %w", collection, docID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, docID, err)
	}
	return &models.Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

// CommitBatch applies all ops in one atomic Firestore write batch. Either
// every op commits or none does.
func (r *firestoreDocumentRepository) CommitBatch(ctx context.Context, collection string, ops []BatchOp) ([]string, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty for CommitBatch")
	}
	if len(ops) == 0 {
		return nil, errors.New("CommitBatch requires at least one operation")
	}

	batch := r.client.Batch()
	col := r.client.Collection(collection)
	ids := make([]string, 0, len(ops))

	for _, op := range ops {
		switch op.Kind {
		case BatchSet:
			ref := col.NewDoc()
			if op.DocID != "" {
				ref = col.Doc(op.DocID)
			}
			batch.Set(ref, op.Fields)
			ids = append(ids, ref.ID)
		case BatchMerge:
			if op.DocID == "" {
				return nil, errors.New("merge operation requires a document ID")
			}
			batch.Set(col.Doc(op.DocID), op.Fields, firestore.MergeAll)
			ids = append(ids, op.DocID)
		case BatchDelete:
			if op.DocID == "" {
				return nil, errors.New("delete operation requires a document ID")
			}
			batch.Delete(col.Doc(op.DocID))
			ids = append(ids, op.DocID)
		default:
			return nil, fmt.Errorf("unknown batch op kind %d", op.Kind)
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch of %d op(s) to %q: %w", len(ops), collection, err)
	}
	return ids, nil
}
