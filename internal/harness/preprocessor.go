package harness

import (
	"fmt"
	"slices"
	"strings"
)

// Expansion is one sink-macro invocation produced by running emitted text
// through a Preprocessor.
type Expansion struct {
	Macro string   `json:"macro" yaml:"macro"`
	Args  []string `json:"args" yaml:"args"`
	Line  int      `json:"line" yaml:"line"`
}

// Name returns the first argument, which is the builtin name for every
// emitted form.
func (e Expansion) Name() string {
	if len(e.Args) == 0 {
		return ""
	}
	return e.Args[0]
}

type macro struct {
	params []string
	body   string
	sink   bool
}

// Preprocessor simulates a C consumer including the emitted file.
//
// It understands the subset of the preprocessor the emitter produces:
// #if over defined() terms joined with && and ||, #ifdef, #ifndef, #else,
// #endif, function-like #define, #undef, and macro invocation lines.
// Sink macros are the ones the consumer defines before the include; each
// invocation that reaches a sink is recorded as an Expansion.
type Preprocessor struct {
	macros map[string]*macro
}

// NewPreprocessor creates a preprocessor with the given sink macros defined.
func NewPreprocessor(sinks ...string) *Preprocessor {
	p := &Preprocessor{macros: make(map[string]*macro)}
	for _, s := range sinks {
		p.macros[s] = &macro{sink: true}
	}
	return p
}

// Defined returns every macro currently defined, sorted.
func (p *Preprocessor) Defined() []string {
	names := make([]string, 0, len(p.macros))
	for name := range p.macros {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsDefined reports whether name is defined.
func (p *Preprocessor) IsDefined(name string) bool {
	_, ok := p.macros[name]
	return ok
}

// conditional tracks one #if nesting level.
type conditional struct {
	parentActive bool
	taken        bool
	active       bool
	line         int
}

// Process runs text through the preprocessor and returns the sink
// expansions in source order.
func (p *Preprocessor) Process(text string) ([]Expansion, error) {
	var (
		expansions []Expansion
		stack      []*conditional
	)
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			directive, rest := splitDirective(line)
			switch directive {
			case "if", "ifdef", "ifndef":
				cond := &conditional{parentActive: active(), line: lineNo}
				if cond.parentActive {
					ok, err := p.evalCondition(directive, rest)
					if err != nil {
						return nil, fmt.Errorf("line %d: %w", lineNo, err)
					}
					cond.active = ok
					cond.taken = ok
				}
				stack = append(stack, cond)
			case "else":
				if len(stack) == 0 {
					return nil, fmt.Errorf("line %d: #else without #if", lineNo)
				}
				top := stack[len(stack)-1]
				top.active = top.parentActive && !top.taken
				top.taken = true
			case "endif":
				if len(stack) == 0 {
					return nil, fmt.Errorf("line %d: #endif without #if", lineNo)
				}
				stack = stack[:len(stack)-1]
			case "define":
				if !active() {
					continue
				}
				if err := p.define(rest); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			case "undef":
				if !active() {
					continue
				}
				delete(p.macros, strings.TrimSpace(rest))
			default:
				return nil, fmt.Errorf("line %d: unsupported directive #%s", lineNo, directive)
			}
			continue
		}

		if !active() {
			continue
		}
		exp, err := p.expand(line, 0)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		exp.Line = lineNo
		expansions = append(expansions, exp)
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("line %d: unterminated #if", stack[len(stack)-1].line)
	}
	return expansions, nil
}

// splitDirective splits "#  define X" into ("define", "X").
func splitDirective(line string) (string, string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	end := strings.IndexFunc(body, func(r rune) bool { return !isIdentRune(r) })
	if end < 0 {
		return body, ""
	}
	return body[:end], strings.TrimSpace(body[end:])
}

func (p *Preprocessor) evalCondition(directive, expr string) (bool, error) {
	switch directive {
	case "ifdef":
		return p.IsDefined(strings.TrimSpace(expr)), nil
	case "ifndef":
		return !p.IsDefined(strings.TrimSpace(expr)), nil
	}

	// Disjunction of conjunctions of optionally negated defined() terms.
	for _, clause := range strings.Split(expr, "||") {
		all := true
		for _, term := range strings.Split(clause, "&&") {
			ok, err := p.evalDefinedTerm(strings.TrimSpace(term))
			if err != nil {
				return false, err
			}
			all = all && ok
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func (p *Preprocessor) evalDefinedTerm(term string) (bool, error) {
	negate := false
	for strings.HasPrefix(term, "!") {
		negate = !negate
		term = strings.TrimSpace(term[1:])
	}
	if !strings.HasPrefix(term, "defined") {
		return false, fmt.Errorf("unsupported #if term %q", term)
	}
	name := strings.TrimSpace(strings.TrimPrefix(term, "defined"))
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(name, "("), ")"))
	if !isIdent(name) {
		return false, fmt.Errorf("unsupported #if term %q", term)
	}
	return p.IsDefined(name) != negate, nil
}

// define handles "NAME(a, b) body" and "NAME body".
func (p *Preprocessor) define(rest string) error {
	end := strings.IndexFunc(rest, func(r rune) bool { return !isIdentRune(r) })
	if end == 0 || rest == "" {
		return fmt.Errorf("#define without a macro name")
	}
	if end < 0 {
		p.macros[rest] = &macro{}
		return nil
	}
	name := rest[:end]
	m := &macro{}
	tail := rest[end:]
	if strings.HasPrefix(tail, "(") {
		closeIdx := strings.Index(tail, ")")
		if closeIdx < 0 {
			return fmt.Errorf("#define %s: unterminated parameter list", name)
		}
		for _, param := range strings.Split(tail[1:closeIdx], ",") {
			param = strings.TrimSpace(param)
			if param == "" {
				continue
			}
			if !isIdent(param) {
				return fmt.Errorf("#define %s: invalid parameter %q", name, param)
			}
			m.params = append(m.params, param)
		}
		tail = tail[closeIdx+1:]
	}
	m.body = strings.TrimSpace(tail)
	p.macros[name] = m
	return nil
}

const maxExpansionDepth = 32

// expand resolves one invocation line down to a sink.
func (p *Preprocessor) expand(text string, depth int) (Expansion, error) {
	if depth > maxExpansionDepth {
		return Expansion{}, fmt.Errorf("macro expansion too deep")
	}
	name, args, err := parseInvocation(text)
	if err != nil {
		return Expansion{}, err
	}
	m, ok := p.macros[name]
	if !ok {
		return Expansion{}, fmt.Errorf("undefined macro %s", name)
	}
	if m.sink {
		return Expansion{Macro: name, Args: args}, nil
	}
	if len(args) != len(m.params) {
		return Expansion{}, fmt.Errorf("macro %s takes %d arguments, got %d", name, len(m.params), len(args))
	}
	bindings := make(map[string]string, len(args))
	for i, param := range m.params {
		bindings[param] = args[i]
	}
	return p.expand(substitute(m.body, bindings), depth+1)
}

// parseInvocation splits `NAME(a, "b, c", d)` into its name and arguments.
// Commas inside string literals or nested parentheses do not split.
func parseInvocation(text string) (string, []string, error) {
	open := strings.Index(text, "(")
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return "", nil, fmt.Errorf("not a macro invocation: %q", text)
	}
	name := strings.TrimSpace(text[:open])
	if !isIdent(name) {
		return "", nil, fmt.Errorf("invalid macro name %q", name)
	}

	inner := text[open+1 : len(text)-1]
	var (
		args    []string
		current strings.Builder
		depth   int
		inStr   bool
		escaped bool
	)
	for _, r := range inner {
		switch {
		case inStr:
			current.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inStr = false
			}
			continue
		case r == '"':
			inStr = true
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if inStr || depth != 0 {
		return "", nil, fmt.Errorf("unbalanced invocation %q", text)
	}
	if last := strings.TrimSpace(current.String()); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return name, args, nil
}

// substitute replaces parameter identifiers in body, leaving string
// literals untouched.
func substitute(body string, bindings map[string]string) string {
	var (
		out   strings.Builder
		ident strings.Builder
		inStr bool
	)
	flush := func() {
		if ident.Len() == 0 {
			return
		}
		if v, ok := bindings[ident.String()]; ok {
			out.WriteString(v)
		} else {
			out.WriteString(ident.String())
		}
		ident.Reset()
	}
	for _, r := range body {
		if inStr {
			out.WriteRune(r)
			if r == '"' {
				inStr = false
			}
			continue
		}
		if isIdentRune(r) {
			ident.WriteRune(r)
			continue
		}
		flush()
		if r == '"' {
			inStr = true
		}
		out.WriteRune(r)
	}
	flush()
	return out.String()
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 && !strings.Contains(line[:idx], `"`) {
		return line[:idx]
	}
	return line
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isIdent(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}
