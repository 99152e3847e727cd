package core

import (
	"context"
	"fmt"
	"strings"

	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/models"
)

// In-memory implementations of the internal/db repository interfaces, used
// by the engine and service tests in place of Firestore.

type fakeSchemaRepo struct {
	fields map[string][]models.FieldDef
	err    error
}

func newFakeSchemaRepo(collection string, fields []models.FieldDef) *fakeSchemaRepo {
	return &fakeSchemaRepo{fields: map[string][]models.FieldDef{collection: fields}}
}

func (f *fakeSchemaRepo) GetFields(_ context.Context, collection string) ([]models.FieldDef, error) {
	if f.err != nil {
		return nil, f.err
	}
	fields, ok := f.fields[collection]
	if !ok {
		return nil, fmt.Errorf("schema for %q: %w", collection, db.ErrNotFound)
	}
	return fields, nil
}

type fakeDocumentRepo struct {
	docs      map[string]map[string]any
	order     []string
	nextID    int
	listErr   error
	commitErr error
	commits   [][]db.BatchOp
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]map[string]any)}
}

func (f *fakeDocumentRepo) seed(id string, fields map[string]any) {
	f.docs[id] = fields
	f.order = append(f.order, id)
}

func (f *fakeDocumentRepo) List(_ context.Context, _ string) ([]models.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	docs := make([]models.Document, 0, len(f.order))
	for _, id := range f.order {
		fields, ok := f.docs[id]
		if !ok {
			continue
		}
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		docs = append(docs, models.Document{ID: id, Fields: copied})
	}
	return docs, nil
}

func (f *fakeDocumentRepo) Get(_ context.Context, _ string, docID string) (*models.Document, error) {
	fields, ok := f.docs[docID]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", docID, db.ErrNotFound)
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &models.Document{ID: docID, Fields: copied}, nil
}

func (f *fakeDocumentRepo) CommitBatch(_ context.Context, _ string, ops []db.BatchOp) ([]string, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	ids := make([]string, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case db.BatchSet:
			id := op.DocID
			if id == "" {
				f.nextID++
				id = fmt.Sprintf("doc-%d", f.nextID)
			}
			f.docs[id] = cloneFields(op.Fields)
			f.order = append(f.order, id)
			ids = append(ids, id)
		case db.BatchMerge:
			existing, ok := f.docs[op.DocID]
			if !ok {
				existing = make(map[string]any)
				f.docs[op.DocID] = existing
				f.order = append(f.order, op.DocID)
			}
			for k, v := range op.Fields {
				existing[k] = v
			}
			ids = append(ids, op.DocID)
		case db.BatchDelete:
			delete(f.docs, op.DocID)
			ids = append(ids, op.DocID)
		}
	}
	f.commits = append(f.commits, ops)
	return ids, nil
}

type fakeAuditRepo struct {
	entries   []models.AuditEntry
	createErr error
}

func (f *fakeAuditRepo) Create(_ context.Context, entry models.AuditEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	entry.ID = fmt.Sprintf("audit-%d", len(f.entries)+1)
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListRecent(_ context.Context, limit int) ([]models.AuditEntry, error) {
	return lastN(f.entries, limit), nil
}

func (f *fakeAuditRepo) ListByCollection(_ context.Context, collection string, limit int) ([]models.AuditEntry, error) {
	var matched []models.AuditEntry
	for _, e := range f.entries {
		if e.Collection == collection {
			matched = append(matched, e)
		}
	}
	return lastN(matched, limit), nil
}

func (f *fakeAuditRepo) ListByDocument(_ context.Context, collection, docID string, limit int) ([]models.AuditEntry, error) {
	var matched []models.AuditEntry
	for _, e := range f.entries {
		if e.Collection == collection && e.DocumentID == docID {
			matched = append(matched, e)
		}
	}
	return lastN(matched, limit), nil
}

func lastN(entries []models.AuditEntry, n int) []models.AuditEntry {
	if n <= 0 || n > len(entries) {
		n = len(entries)
	}
	out := make([]models.AuditEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		out = append(out, entries[i])
	}
	return out
}

type fakeRoleRepo struct {
	roles map[string]models.Role
	users map[string]models.UserRecord
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles: make(map[string]models.Role),
		users: make(map[string]models.UserRecord),
	}
}

func (f *fakeRoleRepo) GetRole(_ context.Context, name string) (*models.Role, error) {
	role, ok := f.roles[name]
	if !ok {
		return nil, fmt.Errorf("role %q: %w", name, db.ErrNotFound)
	}
	return &role, nil
}

func (f *fakeRoleRepo) ListRoles(_ context.Context) ([]models.Role, error) {
	var roles []models.Role
	for _, role := range f.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (f *fakeRoleRepo) SetRole(_ context.Context, role models.Role) error {
	f.roles[role.Name] = role
	return nil
}

func (f *fakeRoleRepo) DeleteRole(_ context.Context, name string) error {
	delete(f.roles, name)
	return nil
}

func (f *fakeRoleRepo) GetUserRecord(_ context.Context, userID string) (*models.UserRecord, error) {
	record, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", userID, db.ErrNotFound)
	}
	return &record, nil
}

func (f *fakeRoleRepo) SetUserRecord(_ context.Context, record models.UserRecord) error {
	f.users[record.ID] = record
	return nil
}

// docIDs extracts the ids of a document slice, for order assertions.
func docIDs(docs []models.Document) string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return strings.Join(ids, ",")
}
