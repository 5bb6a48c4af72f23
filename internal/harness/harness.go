package harness

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/catalog"
	"github.com/roach88/builtingen/internal/compiler"
	"github.com/roach88/builtingen/internal/emitter"
	"github.com/roach88/builtingen/internal/ir"
)

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger passed to the emitter. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness runs scenarios. Each run compiles its specs from scratch, so
// runs share no state.
type Harness struct {
	logger *zap.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile scenario.Specs and load a snapshot
//  2. Emit the include text with the scenario's macro names
//  3. Run the text through a Preprocessor with consumer.define as sinks
//  4. Evaluate assertions
//
// An error is returned only when the specs cannot be compiled or the
// emitted text cannot be preprocessed. Emission failures are recorded in
// the result so emit_error assertions can inspect them.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(scenario)
}

func (h *Harness) run(scenario *Scenario) (*Result, error) {
	snap, err := LoadSnapshot(scenario.Specs)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for c, n := range snap.CategoryCounts() {
		result.Categories[c.String()] = n
	}

	em, err := emitter.New(emitter.WithMacros(scenario.Macros), emitter.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("configuring emitter: %w", err)
	}

	var buf bytes.Buffer
	if err := em.EmitSnapshot(&buf, snap); err != nil {
		result.emitErr = err
		result.EmitError = err.Error()
		if !scenario.ExpectsEmitError() {
			result.AddError(fmt.Sprintf("emission failed: %v", err))
		}
	} else {
		result.Output = buf.String()

		pp := NewPreprocessor(scenario.Consumer.Define...)
		exps, err := pp.Process(result.Output)
		if err != nil {
			return nil, fmt.Errorf("preprocessing emitted text: %w", err)
		}
		result.Expansions = append(result.Expansions, exps...)
		result.Remaining = append(result.Remaining, pp.Defined()...)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// LoadSnapshot compiles spec paths into a snapshot.
func LoadSnapshot(specs []string) (*ir.Snapshot, error) {
	v, err := compiler.LoadFiles(cuecontext.New(), specs)
	if err != nil {
		return nil, fmt.Errorf("loading specs: %w", err)
	}
	k, errs := compiler.Compile(v)
	if len(errs) > 0 {
		return nil, fmt.Errorf("compiling specs: %w", errs[0])
	}
	snap, err := catalog.Load(k)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}
