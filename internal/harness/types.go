package harness

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Output is the emitted include text. Empty if emission failed.
	Output string `json:"output"`

	// Expansions are the sink invocations the consumer saw, in order.
	Expansions []Expansion `json:"expansions"`

	// Remaining lists macros still defined after the include.
	Remaining []string `json:"remaining"`

	// Categories counts builtins per category name.
	Categories map[string]int `json:"categories"`

	// EmitError is the emission failure, if any.
	EmitError string `json:"emit_error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	emitErr error
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Expansions: []Expansion{},
		Remaining:  []string{},
		Categories: make(map[string]int),
		Errors:     []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
