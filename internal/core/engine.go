package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docadmin-backend-go/internal/db"
	"docadmin-backend-go/internal/models"
)

// EngineDeps are the collaborators a CollectionEngine needs. They are passed
// explicitly at construction; engines share no ambient state.
type EngineDeps struct {
	Schemas     db.SchemaRepository
	Documents   db.DocumentRepository
	Audit       AuditService
	Permissions PermissionService
	Logger      *zap.Logger
	PageSize    int
}

// RowError reports one skipped CSV import row. Line is the physical line the
// row starts on in the uploaded file.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportSummary is the result of a CSV import: per-row failures are counted,
// never fatal to the batch.
type ImportSummary struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

// CollectionEngine owns one collection's schema and cached document
// snapshot, and coordinates every mutation against it. Each mutation runs
// its stages strictly in order: coerce+validate, permission check, atomic
// batched write, audit append, full cache refetch; a later stage never
// starts if an earlier one failed. The engine takes no lock across the
// store round-trips, so concurrent edits are last-writer-wins.
type CollectionEngine struct {
	collection string
	deps       EngineDeps

	mu           sync.Mutex
	fields       []models.FieldDef // sorted by Order; nil while the schema is unavailable
	schemaLoaded bool
	snapshot     []models.Document
	generation   string // tag of the most recently requested fetch
}

// NewCollectionEngine builds an engine bound to one collection and attempts
// the initial schema load. A failed load is not fatal: the engine starts
// with an empty field list and stays read-only until the schema resolves
// (it is retried on each mutation attempt).
func NewCollectionEngine(ctx context.Context, collection string, deps EngineDeps) *CollectionEngine {
	if deps.PageSize <= 0 {
		deps.PageSize = DefaultPageSize
	}
	e := &CollectionEngine{collection: collection, deps: deps}
	if err := e.ReloadSchema(ctx); err != nil {
		deps.Logger.Warn("schema load failed; collection is read-only until it resolves",
			zap.String("collection", collection), zap.Error(err))
	}
	return e
}

// Collection returns the collection name this engine is bound to.
func (e *CollectionEngine) Collection() string { return e.collection }

// SchemaAvailable reports whether the schema document loaded successfully.
func (e *CollectionEngine) SchemaAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.schemaLoaded
}

// Fields returns a copy of the declared fields in display order.
func (e *CollectionEngine) Fields() []models.FieldDef {
	e.mu.Lock()
	defer e.mu.Unlock()
	fields := make([]models.FieldDef, len(e.fields))
	copy(fields, e.fields)
	return fields
}

// ReloadSchema re-reads the collection's schema document.
func (e *CollectionEngine) ReloadSchema(ctx context.Context) error {
	fields, err := e.deps.Schemas.GetFields(ctx, e.collection)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.fields = nil
		e.schemaLoaded = false
		return fmt.Errorf("failed to load schema for %q: %w", e.collection, err)
	}
	e.fields = models.SortFields(fields)
	e.schemaLoaded = true
	return nil
}

// Refresh discards the cached snapshot and refetches the full document set.
// Each call tags itself with a fresh generation; a response arriving after a
// newer fetch was requested is stale and ignored.
func (e *CollectionEngine) Refresh(ctx context.Context) error {
	gen := uuid.NewString()
	e.mu.Lock()
	e.generation = gen
	e.mu.Unlock()

	docs, err := e.deps.Documents.List(ctx, e.collection)
	if err != nil {
		return fmt.Errorf("failed to refresh cache for %q: %w", e.collection, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return nil // superseded by a newer fetch
	}
	e.snapshot = docs
	return nil
}

// Snapshot returns a copy of the cached document set.
func (e *CollectionEngine) Snapshot() []models.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	docs := make([]models.Document, len(e.snapshot))
	copy(docs, e.snapshot)
	return docs
}

// Query derives a displayed page from the cached snapshot. It is pure over
// the cache: no stage mutates it or triggers a fetch.
func (e *CollectionEngine) Query(params QueryParams) QueryResult {
	if params.PageSize <= 0 {
		params.PageSize = e.deps.PageSize
	}
	e.mu.Lock()
	snapshot := e.snapshot
	fields := e.fields
	e.mu.Unlock()
	return ApplyQuery(snapshot, fields, params)
}

// ExportCSV serializes the cached snapshot in schema order.
func (e *CollectionEngine) ExportCSV() ([]byte, error) {
	e.mu.Lock()
	snapshot := e.snapshot
	fields := e.fields
	e.mu.Unlock()
	return ExportCSV(snapshot, fields)
}

// Create coerces and validates all declared fields (missing optional fields
// take their type default), requires canEdit, writes a new document with a
// store-generated id, audits it, and refetches the cache.
func (e *CollectionEngine) Create(ctx context.Context, actor Actor, values map[string]string) (*models.Document, error) {
	fields, err := e.requireSchema(ctx)
	if err != nil {
		return nil, err
	}

	coerced := coerceAll(values, fields)
	if result := ValidateDocument(coerced, fields); !result.Valid {
		return nil, &ValidationError{Errors: result.Errors}
	}

	if err := e.requireEdit(ctx, actor); err != nil {
		return nil, err
	}

	ids, err := e.deps.Documents.CommitBatch(ctx, e.collection, []db.BatchOp{
		{Kind: db.BatchSet, Fields: coerced},
	})
	if err != nil {
		return nil, &WriteError{Err: err}
	}
	docID := ids[0]

	e.appendAudit(ctx, models.AuditEntry{
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		Action:     models.AuditActionCreate,
		Collection: e.collection,
		DocumentID: docID,
		Changes:    models.ChangeSet{Before: map[string]any{}, After: cloneFields(coerced)},
	})

	e.refreshAfterWrite(ctx)
	return &models.Document{ID: docID, Fields: coerced}, nil
}

// Update coerces and validates only the edited fields, requires canEdit,
// merges them into the existing document, audits the delta against the
// pre-edit snapshot, and refetches the cache.
func (e *CollectionEngine) Update(ctx context.Context, actor Actor, docID string, values map[string]string) (*models.Document, error) {
	fields, err := e.requireSchema(ctx)
	if err != nil {
		return nil, err
	}

	delta := make(map[string]any)
	var fieldErrs []FieldError
	for _, field := range fields {
		raw, edited := values[field.Name]
		if !edited {
			continue
		}
		coerced := CoerceValue(raw, field.Type)
		if fe := ValidateField(coerced, field); fe != nil {
			fieldErrs = append(fieldErrs, *fe)
			continue
		}
		delta[field.Name] = coerced
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Errors: fieldErrs}
	}
	if len(delta) == 0 {
		return nil, &ValidationError{Errors: []FieldError{{Field: "", Message: "no declared fields were edited"}}}
	}

	before, err := e.lookupDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	if err := e.requireEdit(ctx, actor); err != nil {
		return nil, err
	}

	if _, err := e.deps.Documents.CommitBatch(ctx, e.collection, []db.BatchOp{
		{Kind: db.BatchMerge, DocID: docID, Fields: delta},
	}); err != nil {
		return nil, &WriteError{Err: err}
	}

	e.appendAudit(ctx, models.AuditEntry{
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		Action:     models.AuditActionUpdate,
		Collection: e.collection,
		DocumentID: docID,
		Changes:    models.ChangeSet{Before: cloneFields(before.Fields), After: cloneFields(delta)},
	})

	e.refreshAfterWrite(ctx)

	updated := before.Clone()
	for k, v := range delta {
		updated.Fields[k] = v
	}
	return &updated, nil
}

// Delete requires canDelete, removes the document in one batch, audits the
// full prior state, drops the row from the local cache, and refetches.
func (e *CollectionEngine) Delete(ctx context.Context, actor Actor, docID string) error {
	if _, err := e.requireSchema(ctx); err != nil {
		return err
	}

	before, err := e.lookupDocument(ctx, docID)
	if err != nil {
		return err
	}

	perms, err := e.deps.Permissions.Resolve(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !perms.CanDelete {
		return fmt.Errorf("%w: deleting from %q requires the canDelete capability", ErrPermissionDenied, e.collection)
	}

	if _, err := e.deps.Documents.CommitBatch(ctx, e.collection, []db.BatchOp{
		{Kind: db.BatchDelete, DocID: docID},
	}); err != nil {
		return &WriteError{Err: err}
	}

	beforeFields := cloneFields(before.Fields)
	beforeFields["id"] = docID
	e.appendAudit(ctx, models.AuditEntry{
		UserID:     actor.UserID,
		UserEmail:  actor.Email,
		Action:     models.AuditActionDelete,
		Collection: e.collection,
		DocumentID: docID,
		Changes:    models.ChangeSet{Before: beforeFields, After: map[string]any{"id": docID}},
	})

	// Drop the row locally so the deleted document never re-renders while
	// the refetch is in flight.
	e.mu.Lock()
	kept := e.snapshot[:0:0]
	for _, doc := range e.snapshot {
		if doc.ID != docID {
			kept = append(kept, doc)
		}
	}
	e.snapshot = kept
	e.mu.Unlock()

	e.refreshAfterWrite(ctx)
	return nil
}

// BulkEdit applies one coerced value to one field across the selected
// documents as a single atomic batch, emitting one audit entry per affected
// document with that document's own before/after for the field.
func (e *CollectionEngine) BulkEdit(ctx context.Context, actor Actor, docIDs []string, fieldName, rawValue string) error {
	fields, err := e.requireSchema(ctx)
	if err != nil {
		return err
	}
	if len(docIDs) == 0 {
		return &ValidationError{Errors: []FieldError{{Field: fieldName, Message: "no documents selected"}}}
	}

	var target *models.FieldDef
	for i := range fields {
		if fields[i].Name == fieldName {
			target = &fields[i]
			break
		}
	}
	if target == nil {
		return &ValidationError{Errors: []FieldError{{Field: fieldName, Message: fieldName + " is not a declared field"}}}
	}

	coerced := CoerceValue(rawValue, target.Type)
	if fe := ValidateField(coerced, *target); fe != nil {
		return &ValidationError{Errors: []FieldError{*fe}}
	}

	befores := make(map[string]any, len(docIDs))
	for _, docID := range docIDs {
		doc, err := e.lookupDocument(ctx, docID)
		if err != nil {
			return err
		}
		befores[docID] = doc.Get(fieldName)
	}

	if err := e.requireEdit(ctx, actor); err != nil {
		return err
	}

	ops := make([]db.BatchOp, 0, len(docIDs))
	for _, docID := range docIDs {
		ops = append(ops, db.BatchOp{
			Kind:   db.BatchMerge,
			DocID:  docID,
			Fields: map[string]any{fieldName: coerced},
		})
	}
	if _, err := e.deps.Documents.CommitBatch(ctx, e.collection, ops); err != nil {
		return &WriteError{Err: err}
	}

	for _, docID := range docIDs {
		e.appendAudit(ctx, models.AuditEntry{
			UserID:     actor.UserID,
			UserEmail:  actor.Email,
			Action:     models.AuditActionUpdate,
			Collection: e.collection,
			DocumentID: docID,
			Changes: models.ChangeSet{
				Before: map[string]any{fieldName: befores[docID]},
				After:  map[string]any{fieldName: coerced},
			},
		})
	}

	e.refreshAfterWrite(ctx)
	return nil
}

// ImportCSV parses a CSV payload (header must match the schema exactly or
// nothing is processed), then applies create/update semantics per row inside
// one atomic batch. Per-row coercion and validation failures are counted and
// skipped, not fatal.
func (e *CollectionEngine) ImportCSV(ctx context.Context, actor Actor, data []byte) (ImportSummary, error) {
	var summary ImportSummary

	fields, err := e.requireSchema(ctx)
	if err != nil {
		return summary, err
	}

	rows, parseErrors, err := parseCSV(data, fields)
	if err != nil {
		return summary, err
	}
	summary.Errors = parseErrors
	summary.Skipped = len(parseErrors)

	if err := e.requireEdit(ctx, actor); err != nil {
		return ImportSummary{}, err
	}

	type pendingAudit struct {
		opIndex int
		entry   models.AuditEntry
	}
	var ops []db.BatchOp
	var audits []pendingAudit

	for _, row := range rows {
		coerced := coerceAll(row.Values, fields)
		if result := ValidateDocument(coerced, fields); !result.Valid {
			summary.Skipped++
			summary.Errors = append(summary.Errors, RowError{
				Line:    row.Line,
				Message: joinFieldErrors(result.Errors),
			})
			continue
		}

		entry := models.AuditEntry{
			UserID:     actor.UserID,
			UserEmail:  actor.Email,
			Collection: e.collection,
			DocumentID: row.ID,
		}
		if row.ID == "" {
			entry.Action = models.AuditActionCreate
			entry.Changes = models.ChangeSet{Before: map[string]any{}, After: cloneFields(coerced)}
			ops = append(ops, db.BatchOp{Kind: db.BatchSet, Fields: coerced})
		} else {
			entry.Action = models.AuditActionUpdate
			before := map[string]any{}
			if doc, err := e.lookupDocument(ctx, row.ID); err == nil {
				before = cloneFields(doc.Fields)
			}
			entry.Changes = models.ChangeSet{Before: before, After: cloneFields(coerced)}
			ops = append(ops, db.BatchOp{Kind: db.BatchMerge, DocID: row.ID, Fields: coerced})
		}
		audits = append(audits, pendingAudit{opIndex: len(ops) - 1, entry: entry})
	}

	if len(ops) == 0 {
		return summary, nil
	}

	ids, err := e.deps.Documents.CommitBatch(ctx, e.collection, ops)
	if err != nil {
		return ImportSummary{}, &WriteError{Err: err}
	}
	summary.Imported = len(ops)

	for _, pending := range audits {
		pending.entry.DocumentID = ids[pending.opIndex]
		e.appendAudit(ctx, pending.entry)
	}

	e.refreshAfterWrite(ctx)
	return summary, nil
}

// requireSchema gates every mutation. A previously failed schema load is
// retried here so the collection recovers without a restart.
func (e *CollectionEngine) requireSchema(ctx context.Context) ([]models.FieldDef, error) {
	e.mu.Lock()
	loaded := e.schemaLoaded
	fields := e.fields
	e.mu.Unlock()
	if loaded {
		return fields, nil
	}
	if err := e.ReloadSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}
	return e.Fields(), nil
}

// requireEdit re-checks canEdit immediately before a server-bound write.
func (e *CollectionEngine) requireEdit(ctx context.Context, actor Actor) error {
	perms, err := e.deps.Permissions.Resolve(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !perms.CanEdit {
		return fmt.Errorf("%w: writing to %q requires the canEdit capability", ErrPermissionDenied, e.collection)
	}
	return nil
}

// lookupDocument serves the pre-mutation snapshot: the cache first, the
// store as fallback for documents not yet fetched.
func (e *CollectionEngine) lookupDocument(ctx context.Context, docID string) (models.Document, error) {
	e.mu.Lock()
	for _, doc := range e.snapshot {
		if doc.ID == docID {
			e.mu.Unlock()
			return doc.Clone(), nil
		}
	}
	e.mu.Unlock()

	doc, err := e.deps.Documents.Get(ctx, e.collection, docID)
	if err != nil {
		return models.Document{}, err
	}
	return doc.Clone(), nil
}

// appendAudit appends one entry; a failed append never rolls back the
// primary write. It is logged and the operation still reports success.
func (e *CollectionEngine) appendAudit(ctx context.Context, entry models.AuditEntry) {
	if err := e.deps.Audit.Record(ctx, entry); err != nil {
		e.deps.Logger.Warn("audit append failed after a successful write",
			zap.String("collection", entry.Collection),
			zap.String("documentId", entry.DocumentID),
			zap.String("action", entry.Action),
			zap.Error(err))
	}
}

// refreshAfterWrite refetches the cache after a successful mutation. A
// failed refetch keeps the last-known-good snapshot.
func (e *CollectionEngine) refreshAfterWrite(ctx context.Context) {
	if err := e.Refresh(ctx); err != nil {
		e.deps.Logger.Warn("cache refetch after write failed; keeping last-known-good snapshot",
			zap.String("collection", e.collection), zap.Error(err))
	}
}

// coerceAll coerces every declared field from its raw value; fields absent
// from the input take their type default.
func coerceAll(values map[string]string, fields []models.FieldDef) map[string]any {
	coerced := make(map[string]any, len(fields))
	for _, field := range fields {
		raw, ok := values[field.Name]
		if !ok {
			coerced[field.Name] = CoerceDefault(field.Type)
			continue
		}
		coerced[field.Name] = CoerceValue(raw, field.Type)
	}
	return coerced
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func joinFieldErrors(errs []FieldError) string {
	msgs := make([]string, len(errs))
	for i, fe := range errs {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}
