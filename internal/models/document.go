package models

// Document is one record of a runtime-declared collection. Fields is a loose
// mapping from field name to value (string, float64, bool or nil); keys that
// are not present in the active schema are preserved on writes but never
// rendered or validated.
type Document struct {
	ID     string         `json:"id" firestore:"-"` // Document ID, assigned by the store on creation
	Fields map[string]any `json:"fields"`
}

// Clone returns a deep copy of the document. Values themselves are scalars,
// so copying the map is sufficient.
func (d Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return Document{ID: d.ID, Fields: fields}
}

// Get returns the value for a field name, or nil if the key is absent.
func (d Document) Get(name string) any {
	if d.Fields == nil {
		return nil
	}
	return d.Fields[name]
}
