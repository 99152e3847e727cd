package core

import (
	"fmt"
	"net/url"
	"regexp"

	"docadmin-backend-go/internal/models"
)

// emailPattern is a deliberately simple format check: something before and
// after an @, with a dot in the domain part.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateField checks one coerced value against a field's rules. It returns
// nil when the value passes, or the first violated rule, in this order:
// required, numeric bounds, text length bounds, pattern, email/url format.
// An optional field with an empty value is always valid.
func ValidateField(value any, field models.FieldDef) *FieldError {
	rule := field.Validation
	if rule == nil {
		return nil
	}

	empty := isEmpty(value)
	if rule.Required && empty {
		return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s is required", field.Name)}
	}
	if empty {
		return nil
	}

	if num, ok := NumericValue(value); ok {
		if rule.Min != nil && num < *rule.Min {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be at least %s", field.Name, StringifyValue(*rule.Min))}
		}
		if rule.Max != nil && num > *rule.Max {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be at most %s", field.Name, StringifyValue(*rule.Max))}
		}
	}

	str, isString := value.(string)
	if isString && field.Type == models.FieldText {
		length := float64(len([]rune(str)))
		if rule.Min != nil && length < *rule.Min {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be at least %s characters", field.Name, StringifyValue(*rule.Min))}
		}
		if rule.Max != nil && length > *rule.Max {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be at most %s characters", field.Name, StringifyValue(*rule.Max))}
		}
	}

	if isString && rule.Pattern != nil && *rule.Pattern != "" {
		re, err := regexp.Compile(*rule.Pattern)
		if err != nil {
			// A broken pattern is reported as a validation error, never
			// allowed to escape as a fault.
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("invalid validation pattern for %s: %v", field.Name, err)}
		}
		if !re.MatchString(str) {
			msg := fmt.Sprintf("%s has an invalid format", field.Name)
			if rule.PatternError != nil && *rule.PatternError != "" {
				msg = *rule.PatternError
			}
			return &FieldError{Field: field.Name, Message: msg}
		}
	}

	if isString && (rule.Email || field.Type == models.FieldEmail) {
		if !emailPattern.MatchString(str) {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be a valid email address", field.Name)}
		}
	}

	if isString && (rule.URL || field.Type == models.FieldURL) {
		if !isAbsoluteURL(str) {
			return &FieldError{Field: field.Name, Message: fmt.Sprintf("%s must be a valid absolute URL", field.Name)}
		}
	}

	return nil
}

// ValidateDocument runs ValidateField over every declared field in schema
// order and aggregates all violations. This aggregate, not the per-field
// check, is what gates a write.
func ValidateDocument(doc map[string]any, fields []models.FieldDef) ValidationResult {
	result := ValidationResult{Valid: true}
	for _, field := range models.SortFields(fields) {
		if fe := ValidateField(doc[field.Name], field); fe != nil {
			result.Valid = false
			result.Errors = append(result.Errors, *fe)
		}
	}
	return result
}

// isEmpty reports whether a value counts as absent for the required rule:
// nil or the empty string. Zero numbers and false booleans are present.
func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// isAbsoluteURL requires a parseable URL with both scheme and host.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
