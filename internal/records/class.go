package records

// Predefined class names. Builtin definitions derive from ClassBuiltinBase.
const (
	ClassBuiltinBase         = "BuiltinBase"
	ClassBuiltin             = "Builtin"
	ClassAtomicBuiltin       = "AtomicBuiltin"
	ClassLibraryBuiltin      = "LibraryBuiltin"
	ClassLangBuiltin         = "LangBuiltin"
	ClassTargetBuiltin       = "TargetBuiltin"
	ClassTargetHeaderBuiltin = "TargetHeaderBuiltin"
	ClassLanguage            = "Language"
)

// predefinedClasses is the built-in class hierarchy as (name, parents) pairs,
// parents first.
var predefinedClasses = []struct {
	name    string
	parents []string
}{
	{ClassBuiltinBase, nil},
	{ClassBuiltin, []string{ClassBuiltinBase}},
	{ClassAtomicBuiltin, []string{ClassBuiltin}},
	{ClassLibraryBuiltin, []string{ClassBuiltin}},
	{ClassLangBuiltin, []string{ClassBuiltin}},
	{ClassTargetBuiltin, []string{ClassBuiltinBase}},
	{ClassTargetHeaderBuiltin, []string{ClassBuiltinBase}},
	{ClassLanguage, nil},
}

// IsPredefinedClass reports whether name is one of the built-in classes.
func IsPredefinedClass(name string) bool {
	for _, c := range predefinedClasses {
		if c.name == name {
			return true
		}
	}
	return false
}

// Class is a named record class with zero or more parent classes.
type Class struct {
	Name    string
	Parents []*Class
}

// IsSubClassOf reports whether c is other or derives from it.
func (c *Class) IsSubClassOf(other *Class) bool {
	if c == nil || other == nil {
		return false
	}
	if c == other {
		return true
	}
	for _, p := range c.Parents {
		if p.IsSubClassOf(other) {
			return true
		}
	}
	return false
}
