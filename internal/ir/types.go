package ir

import "slices"

// Class names of the category tags a builtin record may subclass.
const (
	ClassLibraryBuiltin      = "LibraryBuiltin"
	ClassLangBuiltin         = "LangBuiltin"
	ClassTargetBuiltin       = "TargetBuiltin"
	ClassTargetHeaderBuiltin = "TargetHeaderBuiltin"
)

// CategoryClasses lists the structural category classes in classification priority order.
var CategoryClasses = []string{
	ClassLibraryBuiltin,
	ClassLangBuiltin,
	ClassTargetBuiltin,
	ClassTargetHeaderBuiltin,
}

// LanguageRecord identifies a language applicability tag (e.g. "C_LANG").
type LanguageRecord struct {
	Name string `json:"name"`
}

// BuiltinRecord is one compiler builtin descriptor.
//
// ID is assigned in declaration order when records are loaded and is the
// only valid sort key. Language, Header and Features are optional; the
// empty string means the field is absent.
type BuiltinRecord struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Attributes string   `json:"attributes"`
	Atomic     bool     `json:"atomic"`
	Language   string   `json:"language,omitempty"`
	Header     string   `json:"header,omitempty"`
	Features   string   `json:"features,omitempty"`
	SubclassOf ClassSet `json:"subclass_of"`
}

// IsSubClassOf reports whether the record carries the given category tag.
func (r BuiltinRecord) IsSubClassOf(class string) bool {
	return r.SubclassOf.Has(class)
}

// ClassSet is a sorted, duplicate-free set of class names.
type ClassSet []string

// NewClassSet builds a ClassSet from arbitrary names.
func NewClassSet(names ...string) ClassSet {
	set := make(ClassSet, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		set = append(set, n)
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// Has reports whether name is in the set.
func (s ClassSet) Has(name string) bool {
	_, found := slices.BinarySearch(s, name)
	return found
}

// Builtin pairs a record with the category resolved for it at load time.
type Builtin struct {
	Record   BuiltinRecord `json:"record"`
	Category Category      `json:"category"`
}

// Snapshot is an immutable view of a loaded record set.
// Builtins are held in ascending ID order.
type Snapshot struct {
	Languages []LanguageRecord `json:"languages"`
	Builtins  []Builtin        `json:"builtins"`
}

// CategoryCounts returns the number of builtins per category.
func (s *Snapshot) CategoryCounts() map[Category]int {
	counts := make(map[Category]int, len(AllCategories))
	for _, b := range s.Builtins {
		counts[b.Category]++
	}
	return counts
}

// Language returns the language record with the given name.
func (s *Snapshot) Language(name string) (LanguageRecord, bool) {
	for _, l := range s.Languages {
		if l.Name == name {
			return l, true
		}
	}
	return LanguageRecord{}, false
}
