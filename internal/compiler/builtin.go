package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/builtingen/internal/catalog"
	"github.com/roach88/builtingen/internal/records"
)

// Top-level CUE sections.
const (
	sectionLanguage = "language"
	sectionClass    = "class"
	sectionBuiltin  = "builtin"
)

// Fields accepted inside a builtin declaration.
var builtinFields = []string{"classes", "type", "attributes", "atomic", "header", "lang", "features"}

// Compile turns a CUE value holding language, class and builtin sections
// into a records keeper. Uses CUE SDK's Go API directly.
//
// All errors are collected; a nil keeper is returned if any occurred.
// Builtins are registered before languages so their IDs run 1..N in CUE
// field order.
//
//	ctx := cuecontext.New()
//	k, errs := Compile(ctx.CompileString(src))
func Compile(v cue.Value) (*records.Keeper, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	k := records.NewKeeper()

	errs := compileClasses(k, v.LookupPath(cue.ParsePath(sectionClass)))
	if len(errs) > 0 {
		// Builtins naming a broken class would only repeat the same problem.
		return nil, errs
	}

	languages, langErrs := parseLanguages(v.LookupPath(cue.ParsePath(sectionLanguage)))
	errs = append(errs, langErrs...)

	known := make(map[string]bool, len(languages))
	for _, l := range languages {
		known[l.label] = true
	}
	errs = append(errs, compileBuiltins(k, v.LookupPath(cue.ParsePath(sectionBuiltin)), known)...)

	for _, l := range languages {
		fields := map[string]records.Value{catalog.FieldName: records.StringValue(l.name)}
		if _, err := k.AddDef(l.label, []string{records.ClassLanguage}, fields); err != nil {
			errs = append(errs, &CompileError{
				Field:   sectionLanguage + "." + l.label,
				Message: err.Error(),
				Pos:     l.pos,
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return k, nil
}

// compileClasses registers user classes parents-first after rejecting
// unknown parents, redefinitions of predefined classes and cycles.
func compileClasses(k *records.Keeper, v cue.Value) []error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return []error{formatCUEError(err)}
	}

	var (
		errs     []error
		declared []string
		graph    = classGraph{}
		pos      = map[string]token.Pos{}
	)
	for iter.Next() {
		name := labelName(iter.Selector())
		field := sectionClass + "." + name
		cv := iter.Value()

		if records.IsPredefinedClass(name) {
			errs = append(errs, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("cannot redefine predefined class %s", name),
				Pos:     cv.Pos(),
			})
			continue
		}

		parents, err := stringList(cv.LookupPath(cue.ParsePath("parents")), field+".parents")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		declared = append(declared, name)
		graph[name] = parents
		pos[name] = cv.Pos()
	}

	for _, name := range declared {
		for _, p := range graph[name] {
			if _, user := graph[p]; user || records.IsPredefinedClass(p) {
				continue
			}
			errs = append(errs, &CompileError{
				Field:   sectionClass + "." + name + ".parents",
				Message: fmt.Sprintf("unknown parent class %s", p),
				Pos:     pos[name],
			})
		}
	}

	for _, cycle := range AnalyzeClassCycles(graph) {
		errs = append(errs, &CompileError{
			Field:   sectionClass + "." + cycle.Path[0],
			Message: cycle.Message,
			Pos:     pos[cycle.Path[0]],
		})
	}

	if len(errs) > 0 {
		return errs
	}

	for _, name := range registrationOrder(declared, graph) {
		if _, err := k.AddClass(name, graph[name]...); err != nil {
			errs = append(errs, &CompileError{Field: sectionClass + "." + name, Message: err.Error(), Pos: pos[name]})
		}
	}
	return errs
}

type languageDecl struct {
	label string
	name  string
	pos   token.Pos
}

// parseLanguages reads the language section. A language's name defaults
// to its label.
func parseLanguages(v cue.Value) ([]languageDecl, []error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		langs []languageDecl
		errs  []error
	)
	for iter.Next() {
		label := labelName(iter.Selector())
		lv := iter.Value()
		decl := languageDecl{label: label, name: label, pos: lv.Pos()}

		name, ok, err := optionalString(lv, "name", sectionLanguage+"."+label+".name")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			decl.name = name
		}
		langs = append(langs, decl)
	}
	return langs, errs
}

// compileBuiltins adds one definition per builtin, in CUE field order.
func compileBuiltins(k *records.Keeper, v cue.Value, languages map[string]bool) []error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return []error{formatCUEError(err)}
	}

	base := k.GetClass(records.ClassBuiltinBase)
	atomicClass := k.GetClass(records.ClassAtomicBuiltin)

	var errs []error
	for iter.Next() {
		name := labelName(iter.Selector())
		bv := iter.Value()
		field := sectionBuiltin + "." + name

		classes, fields, compileErrs := compileBuiltin(k, bv, field, languages)
		if len(compileErrs) > 0 {
			errs = append(errs, compileErrs...)
			continue
		}

		for _, cn := range classes {
			class := k.GetClass(cn)
			if !class.IsSubClassOf(base) {
				errs = append(errs, &CompileError{
					Field:   field + ".classes",
					Message: fmt.Sprintf("class %s does not derive from %s", cn, records.ClassBuiltinBase),
					Pos:     bv.Pos(),
				})
				continue
			}
			if class.IsSubClassOf(atomicClass) {
				fields[catalog.FieldAtomic] = records.BitValue(true)
			}
		}

		if _, err := k.AddDef(name, classes, fields); err != nil {
			errs = append(errs, &CompileError{Field: field, Message: err.Error(), Pos: bv.Pos()})
		}
	}
	return errs
}

// compileBuiltin reads one builtin declaration into its class list and
// record fields.
func compileBuiltin(k *records.Keeper, v cue.Value, field string, languages map[string]bool) ([]string, map[string]records.Value, []error) {
	var errs []error

	iter, err := v.Fields()
	if err != nil {
		return nil, nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		key := labelName(iter.Selector())
		if !slices.Contains(builtinFields, key) {
			errs = append(errs, &CompileError{
				Field:   field + "." + key,
				Message: "unknown builtin field",
				Pos:     iter.Value().Pos(),
			})
		}
	}

	classes := []string{records.ClassBuiltin}
	if cv := v.LookupPath(cue.ParsePath("classes")); cv.Exists() {
		list, err := stringList(cv, field+".classes")
		if err != nil {
			errs = append(errs, err)
		} else if len(list) > 0 {
			classes = list
		}
	}
	for _, cn := range classes {
		if k.GetClass(cn) == nil {
			errs = append(errs, &CompileError{
				Field:   field + ".classes",
				Message: fmt.Sprintf("unknown class %s", cn),
				Pos:     v.Pos(),
			})
		}
	}

	fields := make(map[string]records.Value)

	for _, req := range []struct{ cue, rec string }{
		{"type", catalog.FieldType},
		{"attributes", catalog.FieldAttributes},
	} {
		s, ok, err := optionalString(v, req.cue, field+"."+req.cue)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !ok:
			errs = append(errs, &CompileError{
				Field:   field + "." + req.cue,
				Message: req.cue + " is required",
				Pos:     v.Pos(),
			})
		default:
			fields[req.rec] = records.StringValue(s)
		}
	}

	for _, opt := range []struct{ cue, rec string }{
		{"header", catalog.FieldHeader},
		{"features", catalog.FieldFeatures},
	} {
		s, ok, err := optionalString(v, opt.cue, field+"."+opt.cue)
		if err != nil {
			errs = append(errs, err)
		} else if ok {
			fields[opt.rec] = records.StringValue(s)
		}
	}

	if av := v.LookupPath(cue.ParsePath("atomic")); av.Exists() {
		b, err := av.Bool()
		if err != nil {
			errs = append(errs, &CompileError{Field: field + ".atomic", Message: "must be a bool", Pos: av.Pos()})
		} else {
			fields[catalog.FieldAtomic] = records.BitValue(b)
		}
	}

	lang, ok, err := optionalString(v, "lang", field+".lang")
	switch {
	case err != nil:
		errs = append(errs, err)
	case ok && !languages[lang]:
		errs = append(errs, &CompileError{
			Field:   field + ".lang",
			Message: fmt.Sprintf("unknown language %s", lang),
			Pos:     v.LookupPath(cue.ParsePath("lang")).Pos(),
		})
	case ok:
		fields[catalog.FieldLang] = records.DefValue(lang)
	}

	return classes, fields, errs
}

// optionalString reads a concrete string field. ok is false when the field
// is absent.
func optionalString(v cue.Value, key, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, true, nil
}

// stringList reads a list of strings.
func stringList(v cue.Value, field string) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// labelName returns a field label without CUE quoting, so that
// "__builtin_foo" and __builtin_foo name the same builtin.
func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
