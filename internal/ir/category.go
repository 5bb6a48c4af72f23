package ir

import "fmt"

// Category is the single output form a builtin record is emitted as.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryAtomic
	CategoryLibrary
	CategoryLang
	CategoryTarget
	CategoryTargetHeader
)

// AllCategories lists every category in a stable order.
var AllCategories = []Category{
	CategoryGeneric,
	CategoryAtomic,
	CategoryLibrary,
	CategoryLang,
	CategoryTarget,
	CategoryTargetHeader,
}

var categoryNames = map[Category]string{
	CategoryGeneric:      "generic",
	CategoryAtomic:       "atomic",
	CategoryLibrary:      "library",
	CategoryLang:         "lang",
	CategoryTarget:       "target",
	CategoryTargetHeader: "target_header",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	name, ok := categoryNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory maps a category name back to its value.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return CategoryGeneric, fmt.Errorf("unknown category %q", name)
}
