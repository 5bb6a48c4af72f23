// Package records is the metadata store builtin definitions are read from.
//
// A Keeper holds classes and definitions the way a TableGen record keeper
// does: every definition is an instance of one or more classes, and carries
// typed field values (strings, bits and references to other definitions).
// Definitions get a monotonically increasing ID in the order they are added,
// which is the declaration order of the source they were compiled from.
//
// The store is built once by the compiler and is read-only afterwards.
// Queries follow the TableGen vocabulary:
//
//	builtins := k.GetAllDerivedDefinitions("BuiltinBase")
//	lib := k.GetClass("LibraryBuiltin")
//	for _, r := range builtins {
//		if r.IsSubClassOf(lib) {
//			header, err := r.ValueAsString("Header")
//			...
//		}
//	}
//
// Field queries return *FieldError values that wrap ErrMissingField,
// ErrInvalidFieldType or ErrUnresolvedReference.
package records
