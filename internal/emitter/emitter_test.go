package emitter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/records"
	"github.com/roach88/builtingen/internal/testutil"
)

// bodyLines returns the emitted lines that are neither preamble nor cleanup.
func bodyLines(out string) []string {
	var body []string
	inBlock := false
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "#if"):
			inBlock = true
		case strings.HasPrefix(line, "#endif"):
			inBlock = false
		case inBlock, line == "", strings.HasPrefix(line, "#"):
		default:
			body = append(body, line)
		}
	}
	return body
}

func mustEmit(t *testing.T, e *Emitter, recs []ir.BuiltinRecord) string {
	t.Helper()
	out, err := e.EmitString(recs)
	require.NoError(t, err)
	return out
}

func newDefault(t *testing.T) *Emitter {
	t.Helper()
	e, err := New()
	require.NoError(t, err)
	return e
}

func TestEmitGolden(t *testing.T) {
	out := mustEmit(t, newDefault(t), testutil.SixCategories())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "six_categories", []byte(out))
}

func TestEmitGenericForm(t *testing.T) {
	out := mustEmit(t, newDefault(t), []ir.BuiltinRecord{
		testutil.Generic(1, "__builtin_foo", "i.", "n"),
	})

	assert.Equal(t, []string{`BUILTIN(__builtin_foo, "i.", "n")`}, bodyLines(out))
}

func TestEmitRenamedGenericMacro(t *testing.T) {
	e, err := New(WithMacros(ir.MacroNames{Builtin: "GENERIC"}))
	require.NoError(t, err)

	out := mustEmit(t, e, []ir.BuiltinRecord{
		testutil.Generic(1, "__builtin_foo", "i.", "n"),
	})

	assert.Equal(t, []string{`GENERIC(__builtin_foo, "i.", "n")`}, bodyLines(out))
	assert.Contains(t, out, "#if defined(GENERIC) && !defined(LIBBUILTIN)\n")
	assert.Contains(t, out, "#undef GENERIC\n")
}

func TestEmitAtomicPrecedence(t *testing.T) {
	rec := testutil.Library(1, "__atomic_lib", "v.", "t", "stdatomic.h", "C_LANG")
	rec.Atomic = true

	out := mustEmit(t, newDefault(t), []ir.BuiltinRecord{rec})

	assert.Equal(t, []string{`ATOMIC_BUILTIN(__atomic_lib, "v.", "t")`}, bodyLines(out))
	assert.NotContains(t, out, "LIBBUILTIN(__atomic_lib")
}

func TestEmitOrdersByIDOnly(t *testing.T) {
	recs := []ir.BuiltinRecord{
		testutil.Generic(3, "aaa", "v", ""),
		testutil.Atomic(1, "zzz", "v", ""),
		testutil.Lang(2, "mmm", "v", "", "C_LANG"),
	}
	original := append([]ir.BuiltinRecord(nil), recs...)

	out := mustEmit(t, newDefault(t), recs)

	assert.Equal(t, []string{
		`ATOMIC_BUILTIN(zzz, "v", "")`,
		`LANGBUILTIN(mmm, "v", "", C_LANG)`,
		`BUILTIN(aaa, "v", "")`,
	}, bodyLines(out))
	assert.Equal(t, original, recs, "caller slice must not be reordered")
}

func TestEmitCardinality(t *testing.T) {
	out := mustEmit(t, newDefault(t), testutil.SixCategories())

	body := bodyLines(out)
	require.Len(t, body, 6)
	for i, prefix := range []string{
		"BUILTIN(", "ATOMIC_BUILTIN(", "LIBBUILTIN(", "LANGBUILTIN(", "TARGET_BUILTIN(", "TARGET_HEADER_BUILTIN(",
	} {
		assert.True(t, strings.HasPrefix(body[i], prefix), "line %d = %q", i, body[i])
	}
}

func TestEmitIdempotent(t *testing.T) {
	e := newDefault(t)
	recs := testutil.SixCategories()

	first := mustEmit(t, e, recs)
	second := mustEmit(t, e, recs)
	assert.Equal(t, first, second)
}

func TestEmitEmptyInput(t *testing.T) {
	out := mustEmit(t, newDefault(t), nil)

	assert.Empty(t, bodyLines(out))
	assert.Equal(t, 5, strings.Count(out, "#if defined(BUILTIN)"))
	assert.Equal(t, 6, strings.Count(out, "#undef "))
}

func TestEmitIgnoresUnconsumedFields(t *testing.T) {
	rec := testutil.Generic(1, "__builtin_bar", "v", "n")
	rec.Features = "avx"
	rec.Header = "bar.h"

	out := mustEmit(t, newDefault(t), []ir.BuiltinRecord{rec})
	assert.Equal(t, []string{`BUILTIN(__builtin_bar, "v", "n")`}, bodyLines(out))
}

func TestEmitMissingFieldAborts(t *testing.T) {
	recs := []ir.BuiltinRecord{
		testutil.Generic(1, "first", "v", ""),
		testutil.Library(2, "abs", "ii", "fnc", "", "ALL_LANGUAGES"),
		testutil.Generic(3, "after", "v", ""),
	}

	var buf bytes.Buffer
	err := newDefault(t).Emit(&buf, recs)
	require.Error(t, err)

	assert.True(t, errors.Is(err, records.ErrMissingField))
	var emitErr *EmitError
	require.ErrorAs(t, err, &emitErr)
	assert.Equal(t, "abs", emitErr.Record)
	assert.Equal(t, int64(2), emitErr.ID)
	assert.Equal(t, "header", emitErr.Field)
	assert.Equal(t, ir.CategoryLibrary, emitErr.Category)
	assert.Contains(t, err.Error(), "abs")
	assert.Contains(t, err.Error(), "header")

	assert.Zero(t, buf.Len(), "no output may be written on failure")
}

func TestEmitMissingFieldPerCategory(t *testing.T) {
	tests := []struct {
		name  string
		rec   ir.BuiltinRecord
		field string
	}{
		{"library without language", testutil.Library(1, "f", "v", "", "h.h", ""), "language"},
		{"lang without language", testutil.Lang(1, "f", "v", "", ""), "language"},
		{"target without features", testutil.Target(1, "f", "v", "", ""), "features"},
		{"target header without header", testutil.TargetHeader(1, "f", "v", "", "", "C_LANG", "sse"), "header"},
		{"target header without features", testutil.TargetHeader(1, "f", "v", "", "h.h", "C_LANG", ""), "features"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newDefault(t).EmitString([]ir.BuiltinRecord{tt.rec})
			var emitErr *EmitError
			require.ErrorAs(t, err, &emitErr)
			assert.Equal(t, tt.field, emitErr.Field)
		})
	}
}

func TestEmitDuplicateID(t *testing.T) {
	_, err := newDefault(t).EmitString([]ir.BuiltinRecord{
		testutil.Generic(1, "a", "v", ""),
		testutil.Generic(1, "b", "v", ""),
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestEmitSnapshotUsesStoredCategory(t *testing.T) {
	snap := &ir.Snapshot{Builtins: []ir.Builtin{
		{Record: testutil.Generic(2, "second", "v", ""), Category: ir.CategoryGeneric},
		{Record: testutil.Generic(1, "first", "v", ""), Category: ir.CategoryAtomic},
	}}

	var buf bytes.Buffer
	require.NoError(t, newDefault(t).EmitSnapshot(&buf, snap))

	assert.Equal(t, []string{
		`ATOMIC_BUILTIN(first, "v", "")`,
		`BUILTIN(second, "v", "")`,
	}, bodyLines(buf.String()))
	assert.Equal(t, "second", snap.Builtins[0].Record.Name, "snapshot must not be reordered")
}

func TestNewRejectsInvalidMacros(t *testing.T) {
	_, err := New(WithMacros(ir.MacroNames{Builtin: "BUILTIN", Atomic: "BUILTIN"}))
	assert.ErrorContains(t, err, "used for both")

	_, err = New(WithMacros(ir.MacroNames{Lang: "lang builtin"}))
	assert.ErrorContains(t, err, "not a C identifier")
}

func TestEmitLogsCategoryCounts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e, err := New(WithLogger(zap.New(core)))
	require.NoError(t, err)

	mustEmit(t, e, testutil.SixCategories())

	entries := logs.FilterMessage("emitted builtins").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 6, fields["builtins"])
	assert.EqualValues(t, 1, fields["atomic"])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEmitWriteFailure(t *testing.T) {
	err := newDefault(t).Emit(failingWriter{}, testutil.SixCategories())
	assert.ErrorContains(t, err, "disk full")
}
