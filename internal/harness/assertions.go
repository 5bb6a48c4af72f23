package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/builtingen/internal/emitter"
	"github.com/roach88/builtingen/internal/records"
)

// AssertionError is returned when an assertion fails.
// It includes the consumer's expansions to help debug the failure.
type AssertionError struct {
	Type       string      // Assertion type for categorization
	Expected   string      // Human-readable expected outcome
	Actual     string      // Human-readable actual outcome
	Expansions []Expansion // Everything the consumer saw
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Expansions) > 0 {
		fmt.Fprintf(&buf, "\nExpansions:\n")
		for i, exp := range e.Expansions {
			fmt.Fprintf(&buf, "  [%d] %s(%s)\n", i+1, exp.Macro, strings.Join(exp.Args, ", "))
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. Returns an empty slice if all assertions pass.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	errs := []string{}
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertExpansionContains:
		return assertExpansionContains(result.Expansions, a)
	case AssertExpansionOrder:
		return assertExpansionOrder(result.Expansions, a)
	case AssertExpansionCount:
		return assertExpansionCount(result.Expansions, a)
	case AssertOutputContains:
		if !strings.Contains(result.Output, a.Text) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output containing %q", a.Text),
				Actual:   "not found in output",
			}
		}
		return nil
	case AssertCategoryCount:
		if got := result.Categories[a.Category]; got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d %s builtin(s)", a.Count, a.Category),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	case AssertNoLeakedMacros:
		if len(result.Remaining) > 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: "no macros defined after the include",
				Actual:   strings.Join(result.Remaining, ", "),
			}
		}
		return nil
	case AssertEmitError:
		return assertEmitError(result.emitErr, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertExpansionContains checks for a sink invocation of a.Macro whose
// first argument is a.Name. If a.Args is set the arguments must match exactly.
func assertExpansionContains(exps []Expansion, a Assertion) error {
	for _, exp := range exps {
		if exp.Macro != a.Macro || exp.Name() != a.Name {
			continue
		}
		if len(a.Args) == 0 || slices.Equal(exp.Args, a.Args) {
			return nil
		}
		return &AssertionError{
			Type:       a.Type,
			Expected:   fmt.Sprintf("%s(%s)", a.Macro, strings.Join(a.Args, ", ")),
			Actual:     fmt.Sprintf("%s(%s)", exp.Macro, strings.Join(exp.Args, ", ")),
			Expansions: exps,
		}
	}
	return &AssertionError{
		Type:       a.Type,
		Expected:   fmt.Sprintf("%s invocation for %s", a.Macro, a.Name),
		Actual:     "not found in expansions",
		Expansions: exps,
	}
}

// assertExpansionOrder checks that builtins reach the consumer in the given
// order. Intervening builtins are allowed.
func assertExpansionOrder(exps []Expansion, a Assertion) error {
	positions := make(map[string]int, len(exps))
	for i, exp := range exps {
		if _, seen := positions[exp.Name()]; !seen {
			positions[exp.Name()] = i
		}
	}

	prev := -1
	for _, name := range a.Names {
		pos, ok := positions[name]
		if !ok {
			return &AssertionError{
				Type:       a.Type,
				Expected:   fmt.Sprintf("builtin %s in expansions", name),
				Actual:     "not found",
				Expansions: exps,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:       a.Type,
				Expected:   fmt.Sprintf("order %s", strings.Join(a.Names, " → ")),
				Actual:     fmt.Sprintf("%s appears before its predecessor", name),
				Expansions: exps,
			}
		}
		prev = pos
	}
	return nil
}

func assertExpansionCount(exps []Expansion, a Assertion) error {
	count := 0
	for _, exp := range exps {
		if a.Macro == "" || exp.Macro == a.Macro {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	target := a.Macro
	if target == "" {
		target = "any sink"
	}
	return &AssertionError{
		Type:       a.Type,
		Expected:   fmt.Sprintf("%d invocation(s) of %s", a.Count, target),
		Actual:     fmt.Sprintf("%d", count),
		Expansions: exps,
	}
}

func assertEmitError(err error, a Assertion) error {
	var emitErr *emitter.EmitError
	if !errors.As(err, &emitErr) || !errors.Is(err, records.ErrMissingField) {
		actual := "emission succeeded"
		if err != nil {
			actual = err.Error()
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("missing field %s on %s", a.Field, a.Name),
			Actual:   actual,
		}
	}
	if emitErr.Record != a.Name || emitErr.Field != a.Field {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("missing field %s on %s", a.Field, a.Name),
			Actual:   fmt.Sprintf("missing field %s on %s", emitErr.Field, emitErr.Record),
		}
	}
	return nil
}
