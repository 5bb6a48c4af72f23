package compiler

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/builtingen/internal/catalog"
	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/records"
)

func compileString(t *testing.T, src string) (*records.Keeper, []error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("builtins.cue"))
	return Compile(v)
}

func errorStrings(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "\n")
}

const sampleSpecs = `
language: ALL_LANGUAGES: {}
language: MS: { name: "ALL_MS_LANGUAGES" }

class: MathLib: { parents: ["LibraryBuiltin"] }

builtin: "__builtin_foo": { type: "i.", attributes: "n" }
builtin: "__c11_atomic_init": { type: "v.", attributes: "t", atomic: true }
builtin: abs: {
	classes:    ["MathLib"]
	type:       "ii"
	attributes: "fnc"
	header:     "stdlib.h"
	lang:       "ALL_LANGUAGES"
}
builtin: "_alloca": {
	classes:    ["LangBuiltin"]
	type:       "v*z"
	attributes: "n"
	lang:       "MS"
}
builtin: "__builtin_ia32_pause": {
	classes:    ["TargetBuiltin"]
	type:       "v"
	attributes: "n"
	features:   "sse2"
}
builtin: "_mm_prefetch": {
	classes:    ["TargetHeaderBuiltin"]
	type:       "vcC*i"
	attributes: "nh"
	header:     "xmmintrin.h"
	lang:       "ALL_LANGUAGES"
	features:   "sse"
}
`

func TestCompileSample(t *testing.T) {
	k, errs := compileString(t, sampleSpecs)
	require.Empty(t, errs, errorStrings(errs))

	snap, err := catalog.Load(k)
	require.NoError(t, err)

	require.Len(t, snap.Builtins, 6)
	wantNames := []string{"__builtin_foo", "__c11_atomic_init", "abs", "_alloca", "__builtin_ia32_pause", "_mm_prefetch"}
	wantCats := []ir.Category{
		ir.CategoryGeneric,
		ir.CategoryAtomic,
		ir.CategoryLibrary,
		ir.CategoryLang,
		ir.CategoryTarget,
		ir.CategoryTargetHeader,
	}
	for i, b := range snap.Builtins {
		assert.Equal(t, int64(i+1), b.Record.ID, "ids follow declaration order")
		assert.Equal(t, wantNames[i], b.Record.Name)
		assert.Equal(t, wantCats[i], b.Category, b.Record.Name)
	}

	assert.Equal(t, "stdlib.h", snap.Builtins[2].Record.Header)
	assert.Equal(t, "ALL_LANGUAGES", snap.Builtins[2].Record.Language)
	assert.Equal(t, "ALL_MS_LANGUAGES", snap.Builtins[3].Record.Language, "language name overrides its label")
	assert.Equal(t, "sse", snap.Builtins[5].Record.Features)

	assert.Equal(t, []ir.LanguageRecord{{Name: "ALL_LANGUAGES"}, {Name: "ALL_MS_LANGUAGES"}}, snap.Languages)
	assert.Empty(t, Validate(snap))
}

func TestCompileUserClassIsTransitive(t *testing.T) {
	k, errs := compileString(t, sampleSpecs)
	require.Empty(t, errs)

	abs := k.GetDef("abs")
	require.NotNil(t, abs)
	assert.True(t, abs.IsSubClassOf(k.GetClass("MathLib")))
	assert.True(t, abs.IsSubClassOf(k.GetClass(records.ClassLibraryBuiltin)))
	assert.True(t, abs.IsSubClassOf(k.GetClass(records.ClassBuiltinBase)))
}

func TestCompileAtomicClassImpliesAtomic(t *testing.T) {
	k, errs := compileString(t, `
		builtin: "__atomic_load": {
			classes:    ["AtomicBuiltin"]
			type:       "v."
			attributes: "t"
		}
	`)
	require.Empty(t, errs)

	atomic, err := k.GetDef("__atomic_load").ValueAsBit(catalog.FieldAtomic)
	require.NoError(t, err)
	assert.True(t, atomic)
}

func TestCompileEmpty(t *testing.T) {
	k, errs := compileString(t, ``)
	require.Empty(t, errs)

	snap, err := catalog.Load(k)
	require.NoError(t, err)
	assert.Empty(t, snap.Builtins)
	assert.Empty(t, snap.Languages)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "unknown class",
			src:     `builtin: abs: { classes: ["NoSuch"], type: "ii", attributes: "fnc" }`,
			field:   "builtin.abs.classes",
			message: "unknown class NoSuch",
		},
		{
			name:    "unknown language",
			src:     `builtin: abs: { classes: ["LangBuiltin"], type: "ii", attributes: "fnc", lang: "C_LANG" }`,
			field:   "builtin.abs.lang",
			message: "unknown language C_LANG",
		},
		{
			name:    "missing type",
			src:     `builtin: abs: { attributes: "fnc" }`,
			field:   "builtin.abs.type",
			message: "type is required",
		},
		{
			name:    "missing attributes",
			src:     `builtin: abs: { type: "ii" }`,
			field:   "builtin.abs.attributes",
			message: "attributes is required",
		},
		{
			name:    "wrong kind",
			src:     `builtin: abs: { type: 3, attributes: "fnc" }`,
			field:   "builtin.abs.type",
			message: "must be a string",
		},
		{
			name:    "atomic not bool",
			src:     `builtin: abs: { type: "ii", attributes: "fnc", atomic: "yes" }`,
			field:   "builtin.abs.atomic",
			message: "must be a bool",
		},
		{
			name:    "unknown field",
			src:     `builtin: abs: { type: "ii", attributes: "fnc", heder: "stdlib.h" }`,
			field:   "builtin.abs.heder",
			message: "unknown builtin field",
		},
		{
			name:    "class outside builtin hierarchy",
			src:     `builtin: abs: { classes: ["Language"], type: "ii", attributes: "fnc" }`,
			field:   "builtin.abs.classes",
			message: "does not derive from BuiltinBase",
		},
		{
			name:    "redefined predefined class",
			src:     `class: Builtin: { parents: [] }`,
			field:   "class.Builtin",
			message: "cannot redefine predefined class Builtin",
		},
		{
			name:    "unknown parent",
			src:     `class: MathLib: { parents: ["Nope"] }`,
			field:   "class.MathLib.parents",
			message: "unknown parent class Nope",
		},
		{
			name:    "class cycle",
			src:     `class: A: { parents: ["B"] }, class: B: { parents: ["A"] }`,
			field:   "class.A",
			message: "class inheritance cycle: A → B → A",
		},
		{
			name:    "parents not a list",
			src:     `class: A: { parents: "Builtin" }`,
			field:   "class.A.parents",
			message: "must be a list of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, errs := compileString(t, tt.src)
			assert.Nil(t, k)
			require.NotEmpty(t, errs)

			var ce *CompileError
			require.True(t, errors.As(errs[0], &ce), "got %T: %v", errs[0], errs[0])
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileCollectsAllErrors(t *testing.T) {
	_, errs := compileString(t, `
		builtin: a: { attributes: "n" }
		builtin: b: { type: "v" }
		builtin: c: { type: "v", attributes: "n", lang: "NONE" }
	`)
	assert.Len(t, errs, 3, errorStrings(errs))
}

func TestCompileCUESyntaxError(t *testing.T) {
	_, errs := compileString(t, `builtin: {`)
	require.Len(t, errs, 1)

	var ce *CompileError
	require.True(t, errors.As(errs[0], &ce))
	assert.Equal(t, "cue", ce.Field)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "builtins.cue:")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "builtin.abs.type", Message: "type is required"}
	assert.Equal(t, "builtin.abs.type: type is required", err.Error())
}
