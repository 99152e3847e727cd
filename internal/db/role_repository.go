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

const (
	rolesCollection = "roles"
	usersCollection = "users"
)

// firestoreRoleRepository implements RoleRepository. Role documents are keyed
// by role name; user records are keyed by the identity provider's UID.
type firestoreRoleRepository struct {
	client *firestore.Client
}

// NewFirestoreRoleRepository creates a RoleRepository backed by Firestore.
func NewFirestoreRoleRepository(client *firestore.Client) RoleRepository {
	return &firestoreRoleRepository{client: client}
}

func (r *firestoreRoleRepository) GetRole(ctx context.Context, name string) (*models.Role, error) {
	if name == "" {
		return nil, errors.New("role name cannot be empty for GetRole")
	}
	snap, err := r.client.Collection(rolesCollection).Doc(name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("role %q not found: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get role %q: %w", name, err)
	}
	var role models.Role
	if err := snap.DataTo(&role); err != nil {
		return nil, fmt.Errorf("failed to decode role %q: %w", name, err)
	}
	role.Name = snap.Ref.ID
	return &role, nil
}

func (r *firestoreRoleRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	iter := r.client.Collection(rolesCollection).Documents(ctx)
	defer iter.Stop()

	var roles []models.Role
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate roles: %w", err)
		}
		var role models.Role
		if err := snap.DataTo(&role); err != nil {
			return nil, fmt.Errorf("failed to decode role %q: %w", snap.Ref.ID, err)
		}
		role.Name = snap.Ref.ID
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *firestoreRoleRepository) SetRole(ctx context.Context, role models.Role) error {
	if role.Name == "" {
		return errors.New("role name cannot be empty for SetRole")
	}
	if _, err := r.client.Collection(rolesCollection).Doc(role.Name).Set(ctx, role); err != nil {
		return fmt.Errorf("failed to set role %q: %w", role.Name, err)
	}
	return nil
}

func (r *firestoreRoleRepository) DeleteRole(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("role name cannot be empty for DeleteRole")
	}
	if _, err := r.client.Collection(rolesCollection).Doc(name).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete role %q: %w", name, err)
	}
	return nil
}

func (r *firestoreRoleRepository) GetUserRecord(ctx context.Context, userID string) (*models.UserRecord, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetUserRecord")
	}
	snap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user record %q not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user record %q: %w", userID, err)
	}
	var record models.UserRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode user record %q: %w", userID, err)
	}
	record.ID = snap.Ref.ID
	return &record, nil
}

func (r *firestoreRoleRepository) SetUserRecord(ctx context.Context, record models.UserRecord) error {
	if record.ID == "" {
		return errors.New("user record ID cannot be empty for SetUserRecord")
	}
	if _, err := r.client.Collection(usersCollection).Doc(record.ID).Set(ctx, userRecordData(record), firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to set user record %q: %w", record.ID, err)
	}
	return nil
}

// userRecordData flattens a record into the stored field map. The client
// rejects MergeAll with struct data, so writes must go through a map.
func userRecordData(record models.UserRecord) map[string]any {
	return map[string]any{
		"email": record.Email,
		"role":  record.Role,
	}
}
