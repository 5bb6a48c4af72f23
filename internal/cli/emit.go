package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/config"
	"github.com/roach88/builtingen/internal/emitter"
	"github.com/roach88/builtingen/internal/ir"
	"github.com/roach88/builtingen/internal/store"
	"github.com/roach88/builtingen/internal/watch"
)

// EmitOptions holds flags for the emit command.
type EmitOptions struct {
	*RootOptions
	Output   string // include file path; empty writes to stdout
	Database string // read the latest imported snapshot instead of CUE
	Watch    bool   // re-emit when specs change
}

// EmitResult describes one emission.
type EmitResult struct {
	Source      string `json:"source"` // specs directory or database path
	ImportID    string `json:"import_id,omitempty"`
	Output      string `json:"output,omitempty"`
	Text        string `json:"text,omitempty"` // set when writing JSON to stdout
	Builtins    int    `json:"builtins"`
	Fingerprint string `json:"fingerprint"`
	Changed     bool   `json:"changed"`
}

// NewEmitCommand creates the emit command.
func NewEmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "emit [specs-dir]",
		Short: "Emit the builtin definition include file",
		Long: `Emit the C preprocessor include text for every builtin.

The text is written to stdout, or with --output to a file that is replaced
atomically under a lock on <output>.lock. An unchanged file is left alone.
With --db the latest snapshot imported into that database is emitted
instead of compiling CUE specs. With --watch the output is regenerated
whenever a .cue file under the specs directory changes.

Macro names come from the "macros" section of builtingen.yaml.

Examples:
  builtingen emit ./specs > Builtins.def
  builtingen emit ./specs -o include/Builtins.def --watch
  builtingen emit --db builtins.db -o include/Builtins.def`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmit(opts, specsArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "emit the latest snapshot from this database")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "regenerate when specs change")

	return cmd
}

func runEmit(opts *EmitOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Watch && opts.Database != "" {
		_ = formatter.Error(ErrCodeUsage, "--watch cannot be combined with --db", nil)
		return NewExitError(ExitCommandError, "--watch cannot be combined with --db")
	}

	cfg, err := loadConfig(opts.RootOptions, formatter, config.Overrides{
		Specs:  specsDir,
		Output: opts.Output,
	})
	if err != nil {
		return err
	}

	if opts.Watch && cfg.Output == "" {
		_ = formatter.Error(ErrCodeUsage, "--watch requires an output file", nil)
		return NewExitError(ExitCommandError, "--watch requires an output file")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, errs := emitOnce(ctx, opts, cfg)
	if len(errs) > 0 {
		failure := loadFailure(formatter, errs)
		if !opts.Watch {
			return failure
		}
	} else if err := outputEmitResult(formatter, result); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}
	return watchAndEmit(ctx, opts, cfg, formatter)
}

// emitOnce loads a snapshot from the database or the specs and writes its
// include text to the configured output.
func emitOnce(ctx context.Context, opts *EmitOptions, cfg *config.Config) (*EmitResult, []*LoadError) {
	logger := opts.Logger()

	var (
		snap   *ir.Snapshot
		result = &EmitResult{Output: cfg.Output}
	)
	if opts.Database != "" {
		s, imp, err := loadLatestSnapshot(ctx, opts.Database, logger)
		if err != nil {
			return nil, []*LoadError{err}
		}
		snap = s
		result.Source = opts.Database
		result.ImportID = imp.ID
	} else {
		loadResult, errs := LoadSpecs(cfg.Specs)
		if len(errs) > 0 {
			return nil, errs
		}
		snap = loadResult.Snapshot
		result.Source = cfg.Specs
	}

	em, err := emitter.New(emitter.WithMacros(cfg.Macros), emitter.WithLogger(logger))
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeConfig, Message: err.Error()}}
	}

	var buf bytes.Buffer
	if err := em.EmitSnapshot(&buf, snap); err != nil {
		return nil, []*LoadError{{Code: ErrCodeEmitFailed, Message: err.Error()}}
	}

	fp, err := snap.Fingerprint()
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("fingerprinting snapshot: %v", err)}}
	}
	result.Fingerprint = fp
	result.Builtins = len(snap.Builtins)

	if cfg.Output == "" {
		result.Text = buf.String()
		result.Changed = true
		return result, nil
	}

	changed, err := writeOutputFile(cfg.Output, buf.Bytes())
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)}}
	}
	result.Changed = changed
	logger.Debug("wrote include file",
		zap.String("output", cfg.Output),
		zap.Bool("changed", changed),
		zap.Int("builtins", result.Builtins),
	)
	return result, nil
}

// loadLatestSnapshot reads the most recent import from an existing database.
func loadLatestSnapshot(ctx context.Context, path string, logger *zap.Logger) (*ir.Snapshot, store.Import, *LoadError) {
	if _, err := os.Stat(path); err != nil {
		return nil, store.Import{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	s, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return nil, store.Import{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("opening database: %v", err)}
	}
	defer s.Close()

	snap, imp, err := s.LoadLatest(ctx)
	if err != nil {
		return nil, store.Import{}, &LoadError{Code: ErrCodeStore, Message: fmt.Sprintf("loading snapshot: %v", err)}
	}
	return snap, imp, nil
}

// watchAndEmit re-emits on every debounced spec change until ctx is done.
// Failed emissions are reported and the previous output is kept.
func watchAndEmit(ctx context.Context, opts *EmitOptions, cfg *config.Config, formatter *OutputFormatter) error {
	logger := opts.Logger()

	w, err := watch.New(cfg.GetDebounce(), watch.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "starting watcher", err)
	}
	if err := w.Add(cfg.Specs); err != nil {
		_ = w.Close()
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("watching %s: %v", cfg.Specs, err), nil)
		return WrapExitError(ExitCommandError, "watching specs", err)
	}

	fmt.Fprintf(formatter.GetErrWriter(), "Watching %s for changes\n", cfg.Specs)
	return w.Run(ctx, func(changed []string) {
		logger.Info("specs changed, re-emitting", zap.Strings("paths", changed))
		result, errs := emitOnce(ctx, opts, cfg)
		if len(errs) > 0 {
			_ = loadFailure(formatter, errs)
			return
		}
		_ = outputEmitResult(formatter, result)
	})
}

func outputEmitResult(formatter *OutputFormatter, result *EmitResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}
	if result.Output == "" {
		_, err := fmt.Fprint(formatter.Writer, result.Text)
		return err
	}
	if result.Changed {
		fmt.Fprintf(formatter.Writer, "✓ Emitted %d builtin(s) to %s\n", result.Builtins, result.Output)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ %s is up to date (%d builtin(s))\n", result.Output, result.Builtins)
	}
	return nil
}
