package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldDefValidate(t *testing.T) {
	tests := []struct {
		name  string
		field FieldDef
		ok    bool
	}{
		{"valid text field", FieldDef{Name: "title", Type: FieldText}, true},
		{"valid select with options", FieldDef{Name: "color", Type: FieldSelect, Options: []string{"red"}}, true},
		{"empty name", FieldDef{Type: FieldText}, false},
		{"unknown type", FieldDef{Name: "x", Type: "blob"}, false},
		{"select without options", FieldDef{Name: "color", Type: FieldSelect}, false},
		{"options on non-select", FieldDef{Name: "title", Type: FieldText, Options: []string{"a"}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.field.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSortFields(t *testing.T) {
	fields := []FieldDef{
		{Name: "c", Order: 2},
		{Name: "a", Order: 1},
		{Name: "b", Order: 2},
	}
	sorted := SortFields(fields)

	assert.Equal(t, "a", sorted[0].Name)
	assert.Equal(t, "c", sorted[1].Name, "equal orders keep declaration order")
	assert.Equal(t, "b", sorted[2].Name)
	assert.Equal(t, "c", fields[0].Name, "the input slice is untouched")
}

func TestDocumentClone(t *testing.T) {
	doc := Document{ID: "d1", Fields: map[string]any{"name": "x"}}
	clone := doc.Clone()
	clone.Fields["name"] = "y"
	assert.Equal(t, "x", doc.Fields["name"])
}

func TestFieldTypeValid(t *testing.T) {
	for _, ft := range AllFieldTypes {
		assert.True(t, ft.Valid(), string(ft))
	}
	assert.False(t, FieldType("blob").Valid())
}
