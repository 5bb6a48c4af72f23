package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/builtingen/internal/classify"
	"github.com/roach88/builtingen/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNilSnapshot          = "E200" // nothing to validate
	ErrMissingCategoryField = "E201" // resolved category needs a field the record lacks
	ErrDuplicateBuiltinID   = "E202" // two builtins share an id
	ErrDuplicateBuiltinName = "E203" // two builtins share a name
	ErrUnknownLanguage      = "E204" // language reference has no language record
	ErrIDOrder              = "E205" // ids are not strictly increasing
	ErrEmptyName            = "E206" // builtin or language name is empty
	ErrCategoryMismatch     = "E207" // stored category differs from the classifier's

	// Warnings (W200-W299) do not fail validation.
	WarnAmbiguousCategory = "W201" // record matches more than one category
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a snapshot validation finding.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether e is informational only.
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// HasErrors reports whether any finding in errs is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}

// Validate checks a snapshot against the builtin table rules.
// Returns all findings (does not fail-fast), warnings included.
func Validate(snap *ir.Snapshot) []ValidationError {
	if snap == nil {
		return []ValidationError{newError("snapshot", "snapshot is nil", ErrNilSnapshot)}
	}

	var errs []ValidationError

	for i, l := range snap.Languages {
		if strings.TrimSpace(l.Name) == "" {
			errs = append(errs, newError(fmt.Sprintf("languages[%d].name", i), "language name is empty", ErrEmptyName))
		}
	}

	ids := make(map[int64]string, len(snap.Builtins))
	names := make(map[string]int64, len(snap.Builtins))
	var prevID int64

	for i, b := range snap.Builtins {
		r := b.Record
		field := "builtin." + r.Name
		if strings.TrimSpace(r.Name) == "" {
			field = fmt.Sprintf("builtins[%d]", i)
			errs = append(errs, newError(field+".name", "builtin name is empty", ErrEmptyName))
		}

		if other, dup := ids[r.ID]; dup {
			errs = append(errs, newError(field+".id",
				fmt.Sprintf("id %d already used by %s", r.ID, other), ErrDuplicateBuiltinID))
		} else {
			ids[r.ID] = r.Name
		}
		if other, dup := names[r.Name]; dup && r.Name != "" {
			errs = append(errs, newError(field,
				fmt.Sprintf("name already used by id %d", other), ErrDuplicateBuiltinName))
		} else {
			names[r.Name] = r.ID
		}
		if i > 0 && r.ID <= prevID {
			errs = append(errs, newError(field+".id",
				fmt.Sprintf("id %d does not follow %d", r.ID, prevID), ErrIDOrder))
		}
		prevID = r.ID

		if _, known := snap.Language(r.Language); r.Language != "" && !known {
			errs = append(errs, newError(field+".language",
				fmt.Sprintf("unknown language %s", r.Language), ErrUnknownLanguage))
		}

		want := classify.Classify(r)
		if b.Category != want {
			errs = append(errs, newError(field+".category",
				fmt.Sprintf("stored category %s, classifier says %s", b.Category, want), ErrCategoryMismatch))
		}

		for _, missing := range classify.Missing(r, want) {
			errs = append(errs, newError(field+"."+missing,
				fmt.Sprintf("%s builtins require %s", want, missing), ErrMissingCategoryField))
		}

		if matched := matchingCategories(r); len(matched) > 1 {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("matches %s; emitted as %s", joinCategories(matched), want),
				Code:     WarnAmbiguousCategory,
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// matchingCategories lists every category whose membership test r passes,
// in priority order.
func matchingCategories(r ir.BuiltinRecord) []ir.Category {
	var out []ir.Category
	if r.Atomic {
		out = append(out, ir.CategoryAtomic)
	}
	for i, class := range ir.CategoryClasses {
		if r.IsSubClassOf(class) {
			out = append(out, categoryForClass[i])
		}
	}
	return out
}

// categoryForClass is parallel to ir.CategoryClasses.
var categoryForClass = []ir.Category{
	ir.CategoryLibrary,
	ir.CategoryLang,
	ir.CategoryTarget,
	ir.CategoryTargetHeader,
}

func joinCategories(cs []ir.Category) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

func newError(field, message, code string) ValidationError {
	return ValidationError{Field: field, Message: message, Code: code, Severity: SeverityError}
}
