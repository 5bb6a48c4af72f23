package ir

import (
	"fmt"
	"regexp"
)

// MacroNames binds each category to the macro name its lines invoke.
// Builtin is the most generic macro every other form falls back to.
type MacroNames struct {
	Builtin      string `json:"builtin" yaml:"builtin"`
	Atomic       string `json:"atomic" yaml:"atomic"`
	Library      string `json:"library" yaml:"library"`
	Lang         string `json:"lang" yaml:"lang"`
	Target       string `json:"target" yaml:"target"`
	TargetHeader string `json:"target_header" yaml:"target_header"`
}

// DefaultMacroNames returns the macro names clang's Builtins.def consumers expect.
func DefaultMacroNames() MacroNames {
	return MacroNames{
		Builtin:      "BUILTIN",
		Atomic:       "ATOMIC_BUILTIN",
		Library:      "LIBBUILTIN",
		Lang:         "LANGBUILTIN",
		Target:       "TARGET_BUILTIN",
		TargetHeader: "TARGET_HEADER_BUILTIN",
	}
}

// ForCategory returns the macro name lines of category c invoke.
func (m MacroNames) ForCategory(c Category) string {
	switch c {
	case CategoryAtomic:
		return m.Atomic
	case CategoryLibrary:
		return m.Library
	case CategoryLang:
		return m.Lang
	case CategoryTarget:
		return m.Target
	case CategoryTargetHeader:
		return m.TargetHeader
	default:
		return m.Builtin
	}
}

// WithDefaults fills empty names from DefaultMacroNames.
func (m MacroNames) WithDefaults() MacroNames {
	d := DefaultMacroNames()
	if m.Builtin == "" {
		m.Builtin = d.Builtin
	}
	if m.Atomic == "" {
		m.Atomic = d.Atomic
	}
	if m.Library == "" {
		m.Library = d.Library
	}
	if m.Lang == "" {
		m.Lang = d.Lang
	}
	if m.Target == "" {
		m.Target = d.Target
	}
	if m.TargetHeader == "" {
		m.TargetHeader = d.TargetHeader
	}
	return m
}

var macroNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks every name is a C identifier and no two categories share one.
func (m MacroNames) Validate() error {
	seen := make(map[string]Category, len(AllCategories))
	for _, c := range AllCategories {
		name := m.ForCategory(c)
		if !macroNamePattern.MatchString(name) {
			return fmt.Errorf("macro name for %s: %q is not a C identifier", c, name)
		}
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("macro name %q used for both %s and %s", name, prev, c)
		}
		seen[name] = c
	}
	return nil
}
