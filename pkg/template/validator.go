// validator.go - Pre-submit draft validation. Errors are collected data, not
// exceptions: every failing rule contributes to the returned set so the form
// can surface all of them at once.
package template

import "fmt"

// ValidationErrors maps form field keys ("name", "background", "fields",
// "fields[i].name") to human-readable messages. An empty set means the draft
// may be submitted.
type ValidationErrors map[string]string

// OK reports whether the draft passed validation.
func (v ValidationErrors) OK() bool { return len(v) == 0 }

// Validate checks a draft against the submit rules. hasStagedFile indicates a
// local background image awaiting upload, which satisfies the background
// requirement before any URL exists.
func Validate(t *Template, kind CatalogKind, hasStagedFile bool) ValidationErrors {
	errs := ValidationErrors{}

	if isBlank(t.Name) {
		errs["name"] = "template name is required"
	}

	if !hasStagedFile && t.Background == "" {
		errs["background"] = "background image is required"
	}

	switch kind {
	case CatalogOpen:
		for i, f := range t.Fields {
			if isBlank(f.Name) {
				errs[fmt.Sprintf("fields[%d].name", i)] = "field name is required"
			}
		}
	default:
		if t.SelectedCount() == 0 {
			errs["fields"] = "at least one field must be selected"
		}
	}

	return errs
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
