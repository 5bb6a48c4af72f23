// Package emitter renders builtin records as macro invocations.
//
// The output has three parts:
//
//	#if defined(BUILTIN) && !defined(LIBBUILTIN)
//	#  define LIBBUILTIN(ID, TYPE, ATTRS, HEADER, BUILTIN_LANG) BUILTIN(ID, TYPE, ATTRS)
//	#endif
//	...                                  preamble: fallback cascade
//	BUILTIN(__builtin_foo, "i.", "n")
//	LIBBUILTIN(abs, "ii", "fnc", "stdlib.h", ALL_LANGUAGES)
//	...                                  body: one line per record
//	#undef BUILTIN
//	...                                  cleanup: all six names
//
// A consumer that defines only BUILTIN still gets one call per record:
// every finer-grained form forwards its first three arguments to BUILTIN.
//
// Records are always emitted in ascending ID order. Consumers number atomic
// builtins by their position in this sequence, so no other order is valid.
//
// Emission is all or nothing. The whole text is rendered into memory and
// written with a single Write; a record that lacks a field its category
// requires aborts the run before anything reaches the writer.
package emitter
