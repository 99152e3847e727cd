package core

import (
	"sort"
	"strconv"
	"strings"

	"docadmin-backend-go/internal/models"
)

// NumericOperator selects the comparison a numeric filter applies.
type NumericOperator string

const (
	OpEqual        NumericOperator = "="
	OpGreater      NumericOperator = ">"
	OpLess         NumericOperator = "<"
	OpGreaterEqual NumericOperator = ">="
	OpLessEqual    NumericOperator = "<="
)

// SortDirection is the three-state sort toggle: ascending, descending, or
// none (original insertion order).
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
	SortNone SortDirection = ""
)

// NextSortDirection cycles a field header through asc -> desc -> none.
func NextSortDirection(current SortDirection) SortDirection {
	switch current {
	case SortAsc:
		return SortDesc
	case SortDesc:
		return SortNone
	default:
		return SortAsc
	}
}

// FilterValue is one per-field filter. A filter with an empty Value is
// inactive. Operator only applies to number fields; it defaults to "=".
type FilterValue struct {
	Value    string          `json:"value"`
	Operator NumericOperator `json:"operator,omitempty"`
}

// QueryParams describes one derived view over a cached snapshot.
type QueryParams struct {
	Search        string
	Filters       map[string]FilterValue
	SortField     string
	SortDirection SortDirection
	Page          int // 1-based
	PageSize      int
}

// QueryResult is the displayed page plus the counts a pager needs. Total and
// PageCount refer to the filtered set; CacheSize is the unfiltered snapshot
// size.
type QueryResult struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	PageCount int               `json:"pageCount"`
	CacheSize int               `json:"cacheSize"`
}

// ApplyQuery derives the displayed page from a snapshot: search, then
// filters, then sort, then pagination. Every stage is pure; the snapshot is
// never mutated and no stage triggers a fetch.
func ApplyQuery(snapshot []models.Document, fields []models.FieldDef, params QueryParams) QueryResult {
	ordered := models.SortFields(fields)

	filtered := make([]models.Document, 0, len(snapshot))
	for _, doc := range snapshot {
		if !matchesSearch(doc, ordered, params.Search) {
			continue
		}
		if !matchesFilters(doc, ordered, params.Filters) {
			continue
		}
		filtered = append(filtered, doc)
	}

	sortDocuments(filtered, ordered, params.SortField, params.SortDirection)

	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageCount := (len(filtered) + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	return QueryResult{
		Documents: filtered[start:end],
		Total:     len(filtered),
		Page:      page,
		PageCount: pageCount,
		CacheSize: len(snapshot),
	}
}

// DefaultPageSize applies when a query does not carry an explicit page size.
const DefaultPageSize = 10

// matchesSearch does a case-insensitive substring match against the
// concatenation of the document's declared field values, in schema order,
// with the id excluded. An empty search matches everything.
func matchesSearch(doc models.Document, fields []models.FieldDef, search string) bool {
	if search == "" {
		return true
	}
	var sb strings.Builder
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(StringifyValue(doc.Get(field.Name)))
	}
	return strings.Contains(strings.ToLower(sb.String()), strings.ToLower(search))
}

// matchesFilters requires every active filter to hold. Number fields compare
// through the filter's operator; boolean and select match exactly; all other
// types match by case-insensitive substring.
func matchesFilters(doc models.Document, fields []models.FieldDef, filters map[string]FilterValue) bool {
	if len(filters) == 0 {
		return true
	}
	byName := make(map[string]models.FieldDef, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	for name, filter := range filters {
		if filter.Value == "" {
			continue // inactive
		}
		field, ok := byName[name]
		if !ok {
			continue // filters on undeclared fields are ignored
		}
		if !matchesFilter(doc.Get(name), field, filter) {
			return false
		}
	}
	return true
}

func matchesFilter(value any, field models.FieldDef, filter FilterValue) bool {
	switch field.Type {
	case models.FieldNumber:
		want, err := strconv.ParseFloat(filter.Value, 64)
		if err != nil {
			return false
		}
		have, ok := NumericValue(value)
		if !ok {
			return false
		}
		switch filter.Operator {
		case OpGreater:
			return have > want
		case OpLess:
			return have < want
		case OpGreaterEqual:
			return have >= want
		case OpLessEqual:
			return have <= want
		default: // OpEqual or unset
			return have == want
		}
	case models.FieldBoolean, models.FieldSelect:
		return StringifyValue(value) == filter.Value
	case models.FieldText, models.FieldDate, models.FieldEmail, models.FieldURL:
		return strings.Contains(strings.ToLower(StringifyValue(value)), strings.ToLower(filter.Value))
	default:
		return false
	}
}

// sortDocuments sorts in place, stably. Null or missing values always sort
// last regardless of direction; number fields compare numerically, all other
// types by case-sensitive lexicographic comparison of the stringified value.
func sortDocuments(docs []models.Document, fields []models.FieldDef, sortField string, dir SortDirection) {
	if sortField == "" || dir == SortNone {
		return
	}
	var fieldType models.FieldType
	found := false
	for _, f := range fields {
		if f.Name == sortField {
			fieldType = f.Type
			found = true
			break
		}
	}
	if !found {
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a := docs[i].Get(sortField)
		b := docs[j].Get(sortField)

		// Nulls last, independent of direction.
		if a == nil && b == nil {
			return false
		}
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}

		var less, equal bool
		if fieldType == models.FieldNumber {
			na, aok := NumericValue(a)
			nb, bok := NumericValue(b)
			switch {
			case !aok && !bok:
				equal = true
			case !aok:
				return false // non-numeric junk sorts with nulls, last
			case !bok:
				return true
			default:
				less = na < nb
				equal = na == nb
			}
		} else {
			sa := StringifyValue(a)
			sb := StringifyValue(b)
			less = sa < sb
			equal = sa == sb
		}

		if equal {
			return false
		}
		if dir == SortDesc {
			return !less
		}
		return less
	})
}
