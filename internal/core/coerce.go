package core

import (
	"fmt"
	"strconv"

	"docadmin-backend-go/internal/models"
)

// CoerceValue converts a raw edited string into the typed value a field
// persists. It never fails: unparseable numbers default to 0 and anything
// but the literal "true" is a false boolean. Callers must validate the
// coerced value, not the raw string, so defaulting artifacts are caught by
// the rules rather than silently stored.
func CoerceValue(raw string, t models.FieldType) any {
	switch t {
	case models.FieldNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return f
	case models.FieldBoolean:
		return raw == "true"
	case models.FieldText, models.FieldSelect, models.FieldDate, models.FieldEmail, models.FieldURL:
		return raw
	default:
		// Unknown types cannot reach here for schemas that passed
		// FieldDef.Validate; treat the value as opaque text.
		return raw
	}
}

// CoerceDefault returns the zero value a missing optional field takes on
// create: 0 for numbers, false for booleans, the empty string otherwise.
func CoerceDefault(t models.FieldType) any {
	switch t {
	case models.FieldNumber:
		return float64(0)
	case models.FieldBoolean:
		return false
	default:
		return ""
	}
}

// StringifyValue renders a stored value for display, search, CSV export and
// lexicographic sorting. Nil renders as the empty string; numbers use the
// shortest representation that round-trips.
func StringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		// Firestore decodes integral numbers written by other clients as int64.
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// NumericValue extracts a float64 from a stored value, reporting whether the
// value was numeric at all.
func NumericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
