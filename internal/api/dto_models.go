package api

import (
	"docadmin-backend-go/internal/core"
	"docadmin-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  []core.FieldError `json:"fields,omitempty"` // populated for validation failures
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SchemaResponse describes a collection's declared fields. SchemaAvailable
// is false while the schema document is unreadable, in which case the
// collection is read-only.
type SchemaResponse struct {
	Collection      string            `json:"collection"`
	SchemaAvailable bool              `json:"schemaAvailable"`
	Fields          []models.FieldDef `json:"fields"`
}

// PermissionsResponse reports the caller's resolved capability set.
type PermissionsResponse struct {
	UserID      string             `json:"userId"`
	Permissions models.Permissions `json:"permissions"`
}
