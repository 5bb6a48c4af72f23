package testutil

import (
	"github.com/roach88/builtingen/internal/classify"
	"github.com/roach88/builtingen/internal/ir"
)

// Generic builds an unclassified, non-atomic record.
func Generic(id int64, name, typ, attrs string) ir.BuiltinRecord {
	return ir.BuiltinRecord{ID: id, Name: name, Type: typ, Attributes: attrs, SubclassOf: ir.ClassSet{}}
}

// Atomic builds an atomic record.
func Atomic(id int64, name, typ, attrs string) ir.BuiltinRecord {
	r := Generic(id, name, typ, attrs)
	r.Atomic = true
	return r
}

// Library builds a LibraryBuiltin record.
func Library(id int64, name, typ, attrs, header, lang string) ir.BuiltinRecord {
	r := Generic(id, name, typ, attrs)
	r.Header = header
	r.Language = lang
	r.SubclassOf = ir.NewClassSet(ir.ClassLibraryBuiltin)
	return r
}

// Lang builds a LangBuiltin record.
func Lang(id int64, name, typ, attrs, lang string) ir.BuiltinRecord {
	r := Generic(id, name, typ, attrs)
	r.Language = lang
	r.SubclassOf = ir.NewClassSet(ir.ClassLangBuiltin)
	return r
}

// Target builds a TargetBuiltin record.
func Target(id int64, name, typ, attrs, features string) ir.BuiltinRecord {
	r := Generic(id, name, typ, attrs)
	r.Features = features
	r.SubclassOf = ir.NewClassSet(ir.ClassTargetBuiltin)
	return r
}

// TargetHeader builds a TargetHeaderBuiltin record.
func TargetHeader(id int64, name, typ, attrs, header, lang, features string) ir.BuiltinRecord {
	r := Generic(id, name, typ, attrs)
	r.Header = header
	r.Language = lang
	r.Features = features
	r.SubclassOf = ir.NewClassSet(ir.ClassTargetHeaderBuiltin)
	return r
}

// SixCategories returns one record per category, IDs 1 through 6 in the
// order generic, atomic, library, lang, target, target header.
func SixCategories() []ir.BuiltinRecord {
	return []ir.BuiltinRecord{
		Generic(1, "__builtin_foo", "i.", "n"),
		Atomic(2, "__c11_atomic_init", "v.", "t"),
		Library(3, "abs", "ii", "fnc", "stdlib.h", "ALL_LANGUAGES"),
		Lang(4, "_alloca", "v*z", "n", "ALL_MS_LANGUAGES"),
		Target(5, "__builtin_ia32_pause", "v", "n", "sse2"),
		TargetHeader(6, "_mm_prefetch", "vcC*i", "nh", "xmmintrin.h", "ALL_LANGUAGES", "sse"),
	}
}

// Snapshot wraps recs in a snapshot, classifying each record and declaring
// every language the records reference.
func Snapshot(recs ...ir.BuiltinRecord) *ir.Snapshot {
	snap := &ir.Snapshot{Languages: []ir.LanguageRecord{}, Builtins: []ir.Builtin{}}
	seen := map[string]bool{}
	for _, r := range recs {
		if r.Language != "" && !seen[r.Language] {
			seen[r.Language] = true
			snap.Languages = append(snap.Languages, ir.LanguageRecord{Name: r.Language})
		}
		snap.Builtins = append(snap.Builtins, ir.Builtin{Record: r, Category: classify.Classify(r)})
	}
	return snap
}
