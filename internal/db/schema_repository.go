package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docadmin-backend-go/internal/models"
)

const schemasCollection = "schemas"

// schemaDocument is the stored shape of one collection's schema: a single
// document per collection holding the field definition array.
type schemaDocument struct {
	Fields []models.FieldDef `firestore:"fields"`
}

// firestoreSchemaRepository implements SchemaRepository against the
// schemas/{collection} documents maintained by the schema registry.
type firestoreSchemaRepository struct {
	client *firestore.Client
}

// NewFirestoreSchemaRepository creates a SchemaRepository backed by Firestore.
func NewFirestoreSchemaRepository(client *firestore.Client) SchemaRepository {
	return &firestoreSchemaRepository{client: client}
}

func (r *firestoreSchemaRepository) GetFields(ctx context.Context, collection string) ([]models.FieldDef, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty for GetFields")
	}
	docSnap, err := r.client.Collection(schemasCollection).Doc(collection).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("schema for collection %q not found: %w", collection, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get schema for collection %q: %w", collection, err)
	}

	var doc schemaDocument
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode schema for collection %q: %w", collection, err)
	}
	return doc.Fields, nil
}
