package emitter

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/classify"
	"github.com/roach88/builtingen/internal/ir"
)

// Emitter renders record sets with a fixed set of macro names.
// An Emitter holds no record-derived state and is safe for concurrent use.
type Emitter struct {
	macros ir.MacroNames
	logger *zap.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithMacros overrides the macro names. Empty names keep their defaults.
func WithMacros(m ir.MacroNames) Option {
	return func(e *Emitter) {
		e.macros = m.WithDefaults()
	}
}

// WithLogger sets the logger used for per-run debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Emitter. It fails if the configured macro names are not
// distinct C identifiers.
func New(opts ...Option) (*Emitter, error) {
	e := &Emitter{
		macros: ir.DefaultMacroNames(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.macros.Validate(); err != nil {
		return nil, fmt.Errorf("emitter: %w", err)
	}
	return e, nil
}

// Emit classifies each record and writes the complete include text to w.
// The caller's slice is not reordered.
func (e *Emitter) Emit(w io.Writer, records []ir.BuiltinRecord) error {
	entries := make([]ir.Builtin, len(records))
	for i, r := range records {
		entries[i] = ir.Builtin{Record: r, Category: classify.Classify(r)}
	}
	return e.write(w, entries)
}

// EmitSnapshot writes the include text for a loaded snapshot, using the
// categories resolved when the snapshot was loaded.
func (e *Emitter) EmitSnapshot(w io.Writer, snap *ir.Snapshot) error {
	return e.write(w, slices.Clone(snap.Builtins))
}

// EmitString is Emit into a string.
func (e *Emitter) EmitString(records []ir.BuiltinRecord) (string, error) {
	var buf bytes.Buffer
	if err := e.Emit(&buf, records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Emitter) write(w io.Writer, entries []ir.Builtin) error {
	out, err := e.render(entries)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("emit: writing output: %w", err)
	}
	return nil
}

// render sorts entries by ID and produces the full text. entries is sorted
// in place; callers pass a private copy.
func (e *Emitter) render(entries []ir.Builtin) ([]byte, error) {
	slices.SortStableFunc(entries, func(a, b ir.Builtin) int {
		return cmp.Compare(a.Record.ID, b.Record.ID)
	})

	var buf bytes.Buffer
	e.writePreamble(&buf)

	counts := make(map[ir.Category]int, len(ir.AllCategories))
	for i, b := range entries {
		if i > 0 && entries[i-1].Record.ID == b.Record.ID {
			return nil, &EmitError{Record: b.Record.Name, ID: b.Record.ID, Category: b.Category, Err: ErrDuplicateID}
		}
		if err := classify.Check(b.Record, b.Category); err != nil {
			return nil, fieldError(b, err)
		}
		e.writeLine(&buf, b)
		counts[b.Category]++
	}

	e.writeCleanup(&buf)

	fields := make([]zap.Field, 0, len(ir.AllCategories)+1)
	fields = append(fields, zap.Int("builtins", len(entries)))
	for _, c := range ir.AllCategories {
		fields = append(fields, zap.Int(c.String(), counts[c]))
	}
	e.logger.Debug("emitted builtins", fields...)

	return buf.Bytes(), nil
}

// writePreamble defines each specific form in terms of the generic macro
// when the consumer bound only the generic one.
func (e *Emitter) writePreamble(buf *bytes.Buffer) {
	m := e.macros
	forms := []struct {
		name   string
		params string
	}{
		{m.Library, "ID, TYPE, ATTRS, HEADER, BUILTIN_LANG"},
		{m.Lang, "ID, TYPE, ATTRS, BUILTIN_LANG"},
		{m.Target, "ID, TYPE, ATTRS, FEATURE"},
		{m.TargetHeader, "ID, TYPE, ATTRS, HEADER, LANG, FEATURE"},
		{m.Atomic, "ID, TYPE, ATTRS"},
	}
	for _, f := range forms {
		fmt.Fprintf(buf, "#if defined(%s) && !defined(%s)\n", m.Builtin, f.name)
		fmt.Fprintf(buf, "#  define %s(%s) %s(ID, TYPE, ATTRS)\n", f.name, f.params, m.Builtin)
		buf.WriteString("#endif\n\n")
	}
}

// writeLine emits one invocation. Free-form strings are quoted verbatim,
// identifiers (name, language) are bare.
func (e *Emitter) writeLine(buf *bytes.Buffer, b ir.Builtin) {
	r := b.Record
	fmt.Fprintf(buf, "%s(%s, \"%s\", \"%s\"", e.macros.ForCategory(b.Category), r.Name, r.Type, r.Attributes)
	switch b.Category {
	case ir.CategoryLibrary:
		fmt.Fprintf(buf, ", \"%s\", %s", r.Header, r.Language)
	case ir.CategoryLang:
		fmt.Fprintf(buf, ", %s", r.Language)
	case ir.CategoryTarget:
		fmt.Fprintf(buf, ", \"%s\"", r.Features)
	case ir.CategoryTargetHeader:
		fmt.Fprintf(buf, ", \"%s\", %s, \"%s\"", r.Header, r.Language, r.Features)
	}
	buf.WriteString(")\n")
}

func (e *Emitter) writeCleanup(buf *bytes.Buffer) {
	m := e.macros
	for _, name := range []string{m.Builtin, m.Atomic, m.Lang, m.Library, m.Target, m.TargetHeader} {
		fmt.Fprintf(buf, "#undef %s\n", name)
	}
}
