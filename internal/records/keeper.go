package records

import (
	"fmt"
	"maps"
)

// Keeper holds every class and definition of one compiled source set.
type Keeper struct {
	classes map[string]*Class
	defs    []*Record
	byName  map[string]*Record
	nextID  int64
}

// NewKeeper creates a keeper with the predefined class hierarchy registered.
func NewKeeper() *Keeper {
	k := &Keeper{
		classes: make(map[string]*Class),
		byName:  make(map[string]*Record),
		nextID:  1,
	}
	for _, c := range predefinedClasses {
		if _, err := k.AddClass(c.name, c.parents...); err != nil {
			panic(fmt.Sprintf("records: registering predefined class %s: %v", c.name, err))
		}
	}
	return k
}

// AddClass registers a class. Parents must already be registered, which
// makes class cycles impossible by construction.
func (k *Keeper) AddClass(name string, parents ...string) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("class name is empty")
	}
	if _, exists := k.classes[name]; exists {
		return nil, fmt.Errorf("class %s already defined", name)
	}
	class := &Class{Name: name}
	for _, p := range parents {
		parent := k.classes[p]
		if parent == nil {
			return nil, fmt.Errorf("class %s: unknown parent class %s", name, p)
		}
		class.Parents = append(class.Parents, parent)
	}
	k.classes[name] = class
	return class, nil
}

// AddDef adds a definition deriving from classes and assigns it the next ID.
// The fields map is copied.
func (k *Keeper) AddDef(name string, classes []string, fields map[string]Value) (*Record, error) {
	if name == "" {
		return nil, fmt.Errorf("definition name is empty")
	}
	if _, exists := k.byName[name]; exists {
		return nil, fmt.Errorf("definition %s already defined", name)
	}
	rec := &Record{
		name:   name,
		id:     k.nextID,
		fields: maps.Clone(fields),
		keeper: k,
	}
	if rec.fields == nil {
		rec.fields = make(map[string]Value)
	}
	for _, cn := range classes {
		class := k.classes[cn]
		if class == nil {
			return nil, fmt.Errorf("definition %s: unknown class %s", name, cn)
		}
		rec.classes = append(rec.classes, class)
	}
	k.nextID++
	k.defs = append(k.defs, rec)
	k.byName[name] = rec
	return rec, nil
}

// GetClass returns the named class, or nil when it is not defined.
func (k *Keeper) GetClass(name string) *Class {
	return k.classes[name]
}

// GetDef returns the named definition, or nil when it is not defined.
func (k *Keeper) GetDef(name string) *Record {
	return k.byName[name]
}

// GetAllDerivedDefinitions returns every definition deriving from className,
// in declaration order. An unknown class yields no definitions.
func (k *Keeper) GetAllDerivedDefinitions(className string) []*Record {
	class := k.classes[className]
	if class == nil {
		return nil
	}
	var out []*Record
	for _, r := range k.defs {
		if r.IsSubClassOf(class) {
			out = append(out, r)
		}
	}
	return out
}
