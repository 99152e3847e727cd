package models

// CreateDocumentRequest carries the raw editor values for a new document.
// Values arrive as strings and are coerced per the collection schema before
// validation; missing optional fields default by type.
type CreateDocumentRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// UpdateDocumentRequest carries only the edited fields of an existing
// document, again as raw strings to be coerced against the current schema.
type UpdateDocumentRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// BulkEditRequest applies one value to one field across an explicit set of
// selected document IDs as a single atomic batch.
type BulkEditRequest struct {
	DocumentIDs []string `json:"documentIds" binding:"required"`
	Field       string   `json:"field" binding:"required"`
	Value       string   `json:"value"`
}

// UpsertRoleRequest creates or replaces a role definition.
type UpsertRoleRequest struct {
	Category    string      `json:"category,omitempty"`
	Permissions Permissions `json:"permissions"`
}

// AssignRoleRequest sets the role name a user resolves to.
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}
