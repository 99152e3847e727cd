package models

import (
	"fmt"
	"sort"
)

// FieldType enumerates the seven value types a schema field may declare.
// The set is closed: every component that branches on a field's type
// (coercion, validation, filtering, sorting) switches over exactly these
// constants and treats anything else as a schema error.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldSelect  FieldType = "select"
	FieldDate    FieldType = "date"
	FieldEmail   FieldType = "email"
	FieldURL     FieldType = "url"
)

// AllFieldTypes lists every valid FieldType, in display order.
var AllFieldTypes = []FieldType{
	FieldText, FieldNumber, FieldBoolean, FieldSelect, FieldDate, FieldEmail, FieldURL,
}

// Valid reports whether t is one of the seven declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldBoolean, FieldSelect, FieldDate, FieldEmail, FieldURL:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type compare numerically
// (filter operators, sort order, min/max bounds as magnitude).
func (t FieldType) IsNumeric() bool {
	return t == FieldNumber
}

// ValidationRule holds the optional per-field constraints.
// Min and Max carry a dual meaning keyed on the field's type: numeric
// magnitude bounds for number fields, character-length bounds for text
// fields. Callers must branch on FieldDef.Type, never on the rule alone.
type ValidationRule struct {
	Required     bool     `json:"required" firestore:"required"`
	Min          *float64 `json:"min,omitempty" firestore:"min,omitempty"`
	Max          *float64 `json:"max,omitempty" firestore:"max,omitempty"`
	Pattern      *string  `json:"pattern,omitempty" firestore:"pattern,omitempty"`
	PatternError *string  `json:"patternError,omitempty" firestore:"patternError,omitempty"`
	Email        bool     `json:"email,omitempty" firestore:"email,omitempty"`
	URL          bool     `json:"url,omitempty" firestore:"url,omitempty"`
}

// FieldDef is one schema entry for a collection. FieldDefs are written by
// the schema registry and consumed read-only here.
type FieldDef struct {
	Name        string          `json:"name" firestore:"name"`
	Type        FieldType       `json:"type" firestore:"type"`
	Options     []string        `json:"options,omitempty" firestore:"options,omitempty"` // required, non-empty iff Type == select
	Validation  *ValidationRule `json:"validation,omitempty" firestore:"validation,omitempty"`
	Description string          `json:"description,omitempty" firestore:"description,omitempty"`
	Order       int             `json:"order" firestore:"order"`
}

// Validate checks the structural invariants of the definition itself
// (not of document values; see core.ValidateField for those).
func (f FieldDef) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field definition has empty name")
	}
	if !f.Type.Valid() {
		return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
	}
	if f.Type == FieldSelect && len(f.Options) == 0 {
		return fmt.Errorf("select field %q must declare at least one option", f.Name)
	}
	if f.Type != FieldSelect && len(f.Options) > 0 {
		return fmt.Errorf("field %q of type %q must not declare options", f.Name, f.Type)
	}
	return nil
}

// SortFields returns a copy of fields ordered by Order, ties broken by the
// original declaration order. Sorting a copy keeps the schema slice shared
// across engine instances untouched.
func SortFields(fields []FieldDef) []FieldDef {
	sorted := make([]FieldDef, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	return sorted
}
