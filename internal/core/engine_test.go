package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/models"
)

const testCollection = "products"

// engineFixture wires a CollectionEngine against in-memory repositories with
// three pre-assigned users: admin-user, editor-user (view+edit) and
// viewer-user (view only).
type engineFixture struct {
	schemas *fakeSchemaRepo
	docs    *fakeDocumentRepo
	audits  *fakeAuditRepo
	roles   *fakeRoleRepo
	engine  *CollectionEngine
}

func productFields() []models.FieldDef {
	return []models.FieldDef{
		{Name: "name", Type: models.FieldText, Order: 1, Validation: &models.ValidationRule{Required: true}},
		{Name: "price", Type: models.FieldNumber, Order: 2, Validation: &models.ValidationRule{Min: f64(0)}},
		{Name: "active", Type: models.FieldBoolean, Order: 3},
	}
}

func newEngineFixture(t *testing.T, fields []models.FieldDef) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		schemas: newFakeSchemaRepo(testCollection, fields),
		docs:    newFakeDocumentRepo(),
		audits:  &fakeAuditRepo{},
		roles:   newFakeRoleRepo(),
	}
	fx.roles.users["admin-user"] = models.UserRecord{ID: "admin-user", Role: "admin"}
	fx.roles.users["editor-user"] = models.UserRecord{ID: "editor-user", Role: "editor"}
	fx.roles.users["viewer-user"] = models.UserRecord{ID: "viewer-user", Role: "viewer"}
	fx.roles.roles["editor"] = models.Role{Name: "editor", Permissions: models.Permissions{CanView: true, CanEdit: true}}
	fx.roles.roles["viewer"] = models.Role{Name: "viewer", Permissions: models.Permissions{CanView: true}}

	fx.engine = NewCollectionEngine(context.Background(), testCollection, EngineDeps{
		Schemas:     fx.schemas,
		Documents:   fx.docs,
		Audit:       NewAuditService(fx.audits),
		Permissions: NewPermissionService(fx.roles, "viewer"),
		Logger:      zap.NewNop(),
		PageSize:    10,
	})
	return fx
}

func (fx *engineFixture) seedAndRefresh(t *testing.T, id string, fields map[string]any) {
	t.Helper()
	fx.docs.seed(id, fields)
	require.NoError(t, fx.engine.Refresh(context.Background()))
}

var (
	editor = Actor{UserID: "editor-user", Email: "editor@example.com"}
	viewer = Actor{UserID: "viewer-user", Email: "viewer@example.com"}
	admin  = Actor{UserID: "admin-user", Email: "admin@example.com"}
)

func TestEngine_CreateHappyPath(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	ctx := context.Background()

	doc, err := fx.engine.Create(ctx, editor, map[string]string{
		"name":   "Widget",
		"price":  "9.5",
		"active": "true",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, float64(9.5), doc.Fields["price"])

	stored := fx.docs.docs[doc.ID]
	require.NotNil(t, stored)
	assert.Equal(t, "Widget", stored["name"])
	assert.Equal(t, true, stored["active"])

	require.Len(t, fx.audits.entries, 1)
	entry := fx.audits.entries[0]
	assert.Equal(t, models.AuditActionCreate, entry.Action)
	assert.Equal(t, doc.ID, entry.DocumentID)
	assert.Equal(t, "editor-user", entry.UserID)
	assert.Equal(t, map[string]any{}, entry.Changes.Before)
	assert.Equal(t, doc.Fields, entry.Changes.After)

	// The cache was refetched and now serves the new document.
	assert.Equal(t, doc.ID, docIDs(fx.engine.Snapshot()))
}

func TestEngine_CreateMissingOptionalFieldTakesDefault(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	doc, err := fx.engine.Create(context.Background(), editor, map[string]string{"name": "Bare"})
	require.NoError(t, err)
	assert.Equal(t, float64(0), doc.Fields["price"])
	assert.Equal(t, false, doc.Fields["active"])
}

func TestEngine_CreateValidationFailureWritesNothing(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	// "-5" coerces to -5, which then violates the min bound. Coercion never
	// masks a bad value from validation.
	_, err := fx.engine.Create(context.Background(), editor, map[string]string{
		"name":  "Bad",
		"price": "-5",
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Errors, 1)
	assert.Equal(t, "price", vErr.Errors[0].Field)

	assert.Empty(t, fx.docs.commits, "a failed validation must not reach the store")
	assert.Empty(t, fx.audits.entries, "a failed validation must not be audited")
}

func TestEngine_CreatePermissionDenied(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	_, err := fx.engine.Create(context.Background(), viewer, map[string]string{"name": "Nope"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, fx.docs.commits)
	assert.Empty(t, fx.audits.entries)
}

func TestEngine_CreateWriteFailure(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.docs.commitErr = errors.New("store unavailable")

	_, err := fx.engine.Create(context.Background(), editor, map[string]string{"name": "Widget"})
	var wErr *WriteError
	require.ErrorAs(t, err, &wErr)
	assert.Empty(t, fx.audits.entries, "a failed write must not be audited")
}

func TestEngine_CreateSucceedsWhenAuditAppendFails(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.audits.createErr = errors.New("audit store down")

	doc, err := fx.engine.Create(context.Background(), editor, map[string]string{"name": "Widget"})
	require.NoError(t, err, "an audit failure never rolls back the write")
	assert.Contains(t, fx.docs.docs, doc.ID)
}

func TestEngine_UpdateAuditsPriorStateAndDelta(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Widget", "price": float64(10), "active": true})

	doc, err := fx.engine.Update(context.Background(), editor, "p1", map[string]string{"price": "20"})
	require.NoError(t, err)
	assert.Equal(t, float64(20), doc.Fields["price"])
	assert.Equal(t, "Widget", doc.Fields["name"], "unedited fields survive the merge")

	require.Len(t, fx.audits.entries, 1)
	entry := fx.audits.entries[0]
	assert.Equal(t, models.AuditActionUpdate, entry.Action)
	assert.Equal(t, "p1", entry.DocumentID)
	assert.Equal(t, map[string]any{"name": "Widget", "price": float64(10), "active": true}, entry.Changes.Before)
	assert.Equal(t, map[string]any{"price": float64(20)}, entry.Changes.After, "after holds the delta only")

	// The merge reached the store.
	assert.Equal(t, float64(20), fx.docs.docs["p1"]["price"])
	assert.Equal(t, "Widget", fx.docs.docs["p1"]["name"])
}

func TestEngine_UpdateValidatesOnlyEditedFields(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	// The stored document is missing its required name, but an update that
	// does not touch name must still go through.
	fx.seedAndRefresh(t, "p1", map[string]any{"price": float64(5)})

	_, err := fx.engine.Update(context.Background(), editor, "p1", map[string]string{"price": "7"})
	assert.NoError(t, err)

	_, err = fx.engine.Update(context.Background(), editor, "p1", map[string]string{"price": "-1"})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestEngine_UpdateWithNoDeclaredFieldsFails(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Widget"})

	_, err := fx.engine.Update(context.Background(), editor, "p1", map[string]string{"bogus": "x"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fx.docs.commits)
}

func TestEngine_UpdateUnknownDocument(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	_, err := fx.engine.Update(context.Background(), editor, "missing", map[string]string{"price": "1"})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEngine_DeleteAuditsFullPriorState(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Widget", "price": float64(10), "active": true})

	err := fx.engine.Delete(context.Background(), admin, "p1")
	require.NoError(t, err)

	assert.NotContains(t, fx.docs.docs, "p1")
	assert.Empty(t, fx.engine.Snapshot())

	require.Len(t, fx.audits.entries, 1)
	entry := fx.audits.entries[0]
	assert.Equal(t, models.AuditActionDelete, entry.Action)
	assert.Equal(t, map[string]any{
		"name": "Widget", "price": float64(10), "active": true, "id": "p1",
	}, entry.Changes.Before)
	assert.Equal(t, map[string]any{"id": "p1"}, entry.Changes.After)
}

func TestEngine_DeleteRequiresCanDelete(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Widget"})

	err := fx.engine.Delete(context.Background(), editor, "p1")
	assert.ErrorIs(t, err, ErrPermissionDenied, "canEdit alone does not allow deletes")
	assert.Contains(t, fx.docs.docs, "p1")
}

func TestEngine_BulkEditEmitsOneEntryPerDocument(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "A", "price": float64(1)})
	fx.seedAndRefresh(t, "p2", map[string]any{"name": "B", "price": float64(2)})
	fx.seedAndRefresh(t, "p3", map[string]any{"name": "C", "price": float64(3)})

	err := fx.engine.BulkEdit(context.Background(), editor, []string{"p1", "p2", "p3"}, "price", "99")
	require.NoError(t, err)

	// One atomic batch carrying all three merges.
	require.Len(t, fx.docs.commits, 1)
	assert.Len(t, fx.docs.commits[0], 3)

	require.Len(t, fx.audits.entries, 3)
	for i, docID := range []string{"p1", "p2", "p3"} {
		entry := fx.audits.entries[i]
		assert.Equal(t, models.AuditActionUpdate, entry.Action)
		assert.Equal(t, docID, entry.DocumentID)
		assert.Equal(t, map[string]any{"price": float64(i + 1)}, entry.Changes.Before)
		assert.Equal(t, map[string]any{"price": float64(99)}, entry.Changes.After)
	}
}

func TestEngine_BulkEditRejectsInvalidValueUpfront(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "A", "price": float64(1)})

	err := fx.engine.BulkEdit(context.Background(), editor, []string{"p1"}, "price", "-1")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fx.docs.commits)
	assert.Empty(t, fx.audits.entries)
}

func TestEngine_BulkEditRejectsUndeclaredField(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "A"})

	err := fx.engine.BulkEdit(context.Background(), editor, []string{"p1"}, "bogus", "x")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestEngine_ImportCSVCreatesAndUpdates(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Old", "price": float64(1), "active": false})

	payload := "id,name,price,active\n" +
		",Fresh,5,true\n" + // empty id: create
		"p1,Renamed,2,false\n" + // known id: update
		",,3,true\n" // missing required name: skipped

	summary, err := fx.engine.ImportCSV(context.Background(), editor, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 4, summary.Errors[0].Line)

	assert.Equal(t, "Renamed", fx.docs.docs["p1"]["name"])

	require.Len(t, fx.audits.entries, 2)
	createEntry := fx.audits.entries[0]
	assert.Equal(t, models.AuditActionCreate, createEntry.Action)
	assert.NotEmpty(t, createEntry.DocumentID, "store-assigned ids are backfilled into the audit")
	assert.Contains(t, fx.docs.docs, createEntry.DocumentID)

	updateEntry := fx.audits.entries[1]
	assert.Equal(t, models.AuditActionUpdate, updateEntry.Action)
	assert.Equal(t, "p1", updateEntry.DocumentID)
	assert.Equal(t, "Old", updateEntry.Changes.Before["name"])
}

func TestEngine_ImportCSVHeaderMismatchAborts(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	_, err := fx.engine.ImportCSV(context.Background(), editor, []byte("id,wrong,header\nx,y,z\n"))
	assert.ErrorIs(t, err, ErrHeaderMismatch)
	assert.Empty(t, fx.docs.commits)
	assert.Empty(t, fx.audits.entries)
}

func TestEngine_ImportCSVRequiresCanEdit(t *testing.T) {
	fx := newEngineFixture(t, productFields())

	payload := "id,name,price,active\n,Fresh,5,true\n"
	_, err := fx.engine.ImportCSV(context.Background(), viewer, []byte(payload))
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, fx.docs.commits)
}

func TestEngine_SchemaUnavailableBlocksMutationsUntilItResolves(t *testing.T) {
	schemas := newFakeSchemaRepo(testCollection, productFields())
	schemas.err = errors.New("schema store down")

	fx := &engineFixture{
		schemas: schemas,
		docs:    newFakeDocumentRepo(),
		audits:  &fakeAuditRepo{},
		roles:   newFakeRoleRepo(),
	}
	fx.roles.users["editor-user"] = models.UserRecord{ID: "editor-user", Role: "editor"}
	fx.roles.roles["editor"] = models.Role{Name: "editor", Permissions: models.Permissions{CanView: true, CanEdit: true}}
	fx.engine = NewCollectionEngine(context.Background(), testCollection, EngineDeps{
		Schemas:     fx.schemas,
		Documents:   fx.docs,
		Audit:       NewAuditService(fx.audits),
		Permissions: NewPermissionService(fx.roles, "viewer"),
		Logger:      zap.NewNop(),
		PageSize:    10,
	})
	assert.False(t, fx.engine.SchemaAvailable())

	_, err := fx.engine.Create(context.Background(), editor, map[string]string{"name": "Widget"})
	assert.ErrorIs(t, err, ErrSchemaUnavailable)

	// Once the schema resolves, the next mutation retries the load and
	// proceeds without a restart.
	schemas.err = nil
	_, err = fx.engine.Create(context.Background(), editor, map[string]string{"name": "Widget"})
	require.NoError(t, err)
	assert.True(t, fx.engine.SchemaAvailable())
}

func TestEngine_QueryServesCachedSnapshot(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.seedAndRefresh(t, "p1", map[string]any{"name": "Widget", "price": float64(10), "active": true})
	fx.seedAndRefresh(t, "p2", map[string]any{"name": "Gadget", "price": float64(20), "active": false})

	result := fx.engine.Query(QueryParams{Search: "gadget"})
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "p2", result.Documents[0].ID)
	assert.Equal(t, 2, result.CacheSize)
}

func TestEngineManager_ReusesEnginePerCollection(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	manager := NewEngineManager(EngineDeps{
		Schemas:     fx.schemas,
		Documents:   fx.docs,
		Audit:       NewAuditService(fx.audits),
		Permissions: NewPermissionService(fx.roles, "viewer"),
		Logger:      zap.NewNop(),
		PageSize:    10,
	})
	ctx := context.Background()

	first, err := manager.Engine(ctx, testCollection)
	require.NoError(t, err)
	second, err := manager.Engine(ctx, testCollection)
	require.NoError(t, err)
	assert.Same(t, first, second)

	manager.Drop(testCollection)
	third, err := manager.Engine(ctx, testCollection)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestEngineManager_DoesNotCacheFailedEngine(t *testing.T) {
	fx := newEngineFixture(t, productFields())
	fx.docs.listErr = errors.New("store down")
	manager := NewEngineManager(EngineDeps{
		Schemas:     fx.schemas,
		Documents:   fx.docs,
		Audit:       NewAuditService(fx.audits),
		Permissions: NewPermissionService(fx.roles, "viewer"),
		Logger:      zap.NewNop(),
		PageSize:    10,
	})
	ctx := context.Background()

	_, err := manager.Engine(ctx, testCollection)
	require.Error(t, err)

	fx.docs.listErr = nil
	engine, err := manager.Engine(ctx, testCollection)
	require.NoError(t, err)
	assert.NotNil(t, engine)
}
