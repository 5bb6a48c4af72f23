package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// exampleSpecsDir holds the repository's example specs: 12 builtins across
// all six forms.
var exampleSpecsDir = filepath.Join("..", "..", "testdata", "specs")

const sixSpecs = `package builtins

language: ALL_LANGUAGES: {}
language: ALL_MS_LANGUAGES: {}

builtin: "__builtin_foo": {type: "i.", attributes: "n"}
builtin: "__c11_atomic_init": {type: "v.", attributes: "t", atomic: true}
builtin: abs: {
	classes:    ["LibraryBuiltin"]
	type:       "ii"
	attributes: "fnc"
	header:     "stdlib.h"
	lang:       "ALL_LANGUAGES"
}
builtin: "_alloca": {
	classes:    ["LangBuiltin"]
	type:       "v*z"
	attributes: "n"
	lang:       "ALL_MS_LANGUAGES"
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

const sixOutput = `#if defined(BUILTIN) && !defined(LIBBUILTIN)
#  define LIBBUILTIN(ID, TYPE, ATTRS, HEADER, BUILTIN_LANG) BUILTIN(ID, TYPE, ATTRS)
#endif

#if defined(BUILTIN) && !defined(LANGBUILTIN)
#  define LANGBUILTIN(ID, TYPE, ATTRS, BUILTIN_LANG) BUILTIN(ID, TYPE, ATTRS)
#endif

#if defined(BUILTIN) && !defined(TARGET_BUILTIN)
#  define TARGET_BUILTIN(ID, TYPE, ATTRS, FEATURE) BUILTIN(ID, TYPE, ATTRS)
#endif

#if defined(BUILTIN) && !defined(TARGET_HEADER_BUILTIN)
#  define TARGET_HEADER_BUILTIN(ID, TYPE, ATTRS, HEADER, LANG, FEATURE) BUILTIN(ID, TYPE, ATTRS)
#endif

#if defined(BUILTIN) && !defined(ATOMIC_BUILTIN)
#  define ATOMIC_BUILTIN(ID, TYPE, ATTRS) BUILTIN(ID, TYPE, ATTRS)
#endif

BUILTIN(__builtin_foo, "i.", "n")
ATOMIC_BUILTIN(__c11_atomic_init, "v.", "t")
LIBBUILTIN(abs, "ii", "fnc", "stdlib.h", ALL_LANGUAGES)
LANGBUILTIN(_alloca, "v*z", "n", ALL_MS_LANGUAGES)
TARGET_BUILTIN(__builtin_ia32_pause, "v", "n", "sse2")
TARGET_HEADER_BUILTIN(_mm_prefetch, "vcC*i", "nh", "xmmintrin.h", ALL_LANGUAGES, "sse")
#undef BUILTIN
#undef ATOMIC_BUILTIN
#undef LANGBUILTIN
#undef LIBBUILTIN
#undef TARGET_BUILTIN
#undef TARGET_HEADER_BUILTIN
`

// writeSpecs writes a single builtins.cue into a fresh directory.
func writeSpecs(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "builtins.cue"), []byte(content), 0o644))
	return dir
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// syncBuffer is a bytes.Buffer safe for use from the watch goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
