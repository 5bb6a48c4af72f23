// Package catalog turns a records keeper into an immutable ir.Snapshot.
//
// Load is the only place class membership is queried. Each builtin's
// category is resolved once here and stored next to the record, so the
// emitter and every later consumer work from plain data.
package catalog

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/builtingen/internal/classify"
	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/records"
)

// Field names builtin and language definitions carry in the keeper.
const (
	FieldName       = "Name"
	FieldType       = "Type"
	FieldAttributes = "Attributes"
	FieldAtomic     = "Atomic"
	FieldLang       = "Lang"
	FieldHeader     = "Header"
	FieldFeatures   = "Features"
)

// Load reads every language and builtin definition out of k.
//
// Builtins are returned in ascending ID order. Required-field checks for
// the resolved category are left to the emitter and compiler.Validate;
// Load only fails when a field has the wrong kind, a mandatory
// field (Type, Attributes) is missing, or a language reference dangles.
func Load(k *records.Keeper) (*ir.Snapshot, error) {
	snap := &ir.Snapshot{
		Languages: []ir.LanguageRecord{},
		Builtins:  []ir.Builtin{},
	}

	for _, def := range k.GetAllDerivedDefinitions(records.ClassLanguage) {
		name, err := languageName(def)
		if err != nil {
			return nil, fmt.Errorf("loading language %s: %w", def.Name(), err)
		}
		snap.Languages = append(snap.Languages, ir.LanguageRecord{Name: name})
	}

	categoryClasses := make(map[string]*records.Class, len(ir.CategoryClasses))
	for _, name := range ir.CategoryClasses {
		categoryClasses[name] = k.GetClass(name)
	}

	for _, def := range k.GetAllDerivedDefinitions(records.ClassBuiltinBase) {
		rec, err := loadBuiltin(def, categoryClasses)
		if err != nil {
			return nil, fmt.Errorf("loading builtin %s: %w", def.Name(), err)
		}
		snap.Builtins = append(snap.Builtins, ir.Builtin{
			Record:   rec,
			Category: classify.Classify(rec),
		})
	}

	slices.SortStableFunc(snap.Builtins, func(a, b ir.Builtin) int {
		return cmp.Compare(a.Record.ID, b.Record.ID)
	})

	return snap, nil
}

func loadBuiltin(def *records.Record, categoryClasses map[string]*records.Class) (ir.BuiltinRecord, error) {
	rec := ir.BuiltinRecord{
		ID:   def.ID(),
		Name: def.Name(),
	}

	var err error
	if rec.Type, err = def.ValueAsString(FieldType); err != nil {
		return rec, err
	}
	if rec.Attributes, err = def.ValueAsString(FieldAttributes); err != nil {
		return rec, err
	}
	if def.HasField(FieldAtomic) {
		if rec.Atomic, err = def.ValueAsBit(FieldAtomic); err != nil {
			return rec, err
		}
	}
	if def.HasField(FieldLang) {
		lang, err := def.ValueAsDef(FieldLang)
		if err != nil {
			return rec, err
		}
		if rec.Language, err = languageName(lang); err != nil {
			return rec, err
		}
	}
	if rec.Header, err = def.ValueAsOptionalString(FieldHeader); err != nil {
		return rec, err
	}
	if rec.Features, err = def.ValueAsOptionalString(FieldFeatures); err != nil {
		return rec, err
	}

	var tags []string
	for _, name := range ir.CategoryClasses {
		if def.IsSubClassOf(categoryClasses[name]) {
			tags = append(tags, name)
		}
	}
	rec.SubclassOf = ir.NewClassSet(tags...)

	return rec, nil
}

// languageName returns a language definition's Name field, defaulting to
// the definition name.
func languageName(def *records.Record) (string, error) {
	name, err := def.ValueAsOptionalString(FieldName)
	if err != nil {
		return "", err
	}
	if name == "" {
		return def.Name(), nil
	}
	return name, nil
}
