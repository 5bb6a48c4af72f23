// Package classify decides which output form a builtin record is emitted as.
package classify

import (
	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/records"
)

// Field names a category may require beyond name, type and attributes.
const (
	FieldHeader   = "header"
	FieldLanguage = "language"
	FieldFeatures = "features"
)

// Classify returns the category of r. First match wins:
//
//  1. atomic                 → Atomic
//  2. LibraryBuiltin         → Library
//  3. LangBuiltin            → Lang
//  4. TargetBuiltin          → Target
//  5. TargetHeaderBuiltin    → TargetHeader
//  6. otherwise              → Generic
//
// Atomic dominates every structural category so that atomic numbering,
// which follows emission order, is never perturbed by class metadata.
func Classify(r ir.BuiltinRecord) ir.Category {
	switch {
	case r.Atomic:
		return ir.CategoryAtomic
	case r.IsSubClassOf(ir.ClassLibraryBuiltin):
		return ir.CategoryLibrary
	case r.IsSubClassOf(ir.ClassLangBuiltin):
		return ir.CategoryLang
	case r.IsSubClassOf(ir.ClassTargetBuiltin):
		return ir.CategoryTarget
	case r.IsSubClassOf(ir.ClassTargetHeaderBuiltin):
		return ir.CategoryTargetHeader
	default:
		return ir.CategoryGeneric
	}
}

// Required lists the optional record fields category c consumes, in the
// order they appear in its emitted line.
func Required(c ir.Category) []string {
	switch c {
	case ir.CategoryLibrary:
		return []string{FieldHeader, FieldLanguage}
	case ir.CategoryLang:
		return []string{FieldLanguage}
	case ir.CategoryTarget:
		return []string{FieldFeatures}
	case ir.CategoryTargetHeader:
		return []string{FieldHeader, FieldLanguage, FieldFeatures}
	default:
		return nil
	}
}

// Missing returns the fields category c requires that r lacks.
// Fields r carries but c does not consume are ignored.
func Missing(r ir.BuiltinRecord, c ir.Category) []string {
	var missing []string
	for _, field := range Required(c) {
		if fieldValue(r, field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// Check reports the first field category c requires that r lacks as a
// *records.FieldError wrapping records.ErrMissingField.
func Check(r ir.BuiltinRecord, c ir.Category) error {
	missing := Missing(r, c)
	if len(missing) == 0 {
		return nil
	}
	return &records.FieldError{Record: r.Name, Field: missing[0], Err: records.ErrMissingField}
}

func fieldValue(r ir.BuiltinRecord, field string) string {
	switch field {
	case FieldHeader:
		return r.Header
	case FieldLanguage:
		return r.Language
	case FieldFeatures:
		return r.Features
	default:
		return ""
	}
}
