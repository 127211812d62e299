// Package validation collects per-field error messages for request bodies.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	MsgRequired = "This field is required."
	MsgBlank    = "This field may not be blank."
)

// Errors maps a field name to its messages. The JSON form is the response body.
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns nil when nothing was collected.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RequiredString checks presence, blankness and length of a text field.
// It reports whether the value passed.
func (e Errors) RequiredString(field string, value *string, maxLen int) bool {
	if value == nil {
		e.Add(field, MsgRequired)
		return false
	}
	if strings.TrimSpace(*value) == "" {
		e.Add(field, MsgBlank)
		return false
	}
	if maxLen > 0 && utf8.RuneCountInString(*value) > maxLen {
		e.Add(field, MaxLength(maxLen))
		return false
	}
	return true
}

func MaxLength(n int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", n)
}
