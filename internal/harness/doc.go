// Package harness checks emitted builtin tables the way a C consumer sees them.
//
// A scenario compiles CUE specs, emits the include text, and feeds it to a
// Preprocessor that plays the role of the including translation unit. The
// consumer defines a set of sink macros before the include; every builtin
// line is expanded through the fallback forwards until it reaches a sink.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - builtins.cue
//	macros:
//	  builtin: GENERIC        # optional renames
//	consumer:
//	  define: [BUILTIN]       # sinks defined before the include
//	assertions:
//	  - type: expansion_count
//	    macro: BUILTIN
//	    count: 6
//	  - type: expansion_contains
//	    macro: BUILTIN
//	    name: abs
//	    args: [abs, '"ii"', '"fnc"']
//	  - type: expansion_order
//	    names: [__builtin_foo, abs]
//	  - type: no_leaked_macros
//
// # Assertion Types
//
//   - expansion_contains: a sink invocation for a builtin exists, optionally with exact args
//   - expansion_order: builtins reach the consumer in the given order
//   - expansion_count: a sink (or all sinks) is invoked N times
//   - output_contains: the emitted text contains a substring
//   - category_count: the snapshot holds N builtins of a category
//   - no_leaked_macros: the cleanup block left nothing defined
//   - emit_error: emission aborts because a builtin lacks a field
//
// # Golden Files
//
// The emitted text of a scenario can be compared against a golden file,
// with goldie in tests (RunWithGolden) or directly on disk from the CLI
// (CompareGoldenFile, UpdateGoldenFile).
package harness
