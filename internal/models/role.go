package models

// AdminRoleName always resolves to full permissions, even when the stored
// role document is missing or corrupt.
const AdminRoleName = "admin"

// Permissions is the capability set a role grants.
type Permissions struct {
	CanView        bool `json:"canView" firestore:"canView"`
	CanEdit        bool `json:"canEdit" firestore:"canEdit"`
	CanDelete      bool `json:"canDelete" firestore:"canDelete"`
	CanManageRoles bool `json:"canManageRoles" firestore:"canManageRoles"`
}

// AllPermissions returns the capability set granted to the admin role.
func AllPermissions() Permissions {
	return Permissions{CanView: true, CanEdit: true, CanDelete: true, CanManageRoles: true}
}

// Role is a named bundle of capabilities plus a category tag for UI grouping.
// The role name doubles as the document ID in the roles collection.
type Role struct {
	Name        string      `json:"name" firestore:"-"`
	Category    string      `json:"category,omitempty" firestore:"category,omitempty"`
	Permissions Permissions `json:"permissions" firestore:"permissions"`
}

// UserRecord maps an identity-provider user to exactly one role name.
// Absent a record (or an empty Role), the configured default role applies.
type UserRecord struct {
	ID    string `json:"id" firestore:"-"` // identity provider UID, used as document ID
	Email string `json:"email" firestore:"email"`
	Role  string `json:"role" firestore:"role"`
}
