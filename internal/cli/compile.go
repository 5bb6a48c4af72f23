package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/config"
	"github.com/roach88/builtingen/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // snapshot JSON file path
}

// CompilationResult summarizes a compiled snapshot.
type CompilationResult struct {
	Fingerprint string         `json:"fingerprint"`
	Languages   int            `json:"languages"`
	Builtins    int            `json:"builtins"`
	Categories  map[string]int `json:"categories"`
	Snapshot    *ir.Snapshot   `json:"snapshot"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [specs-dir]",
		Short: "Compile CUE builtin specs to a snapshot",
		Long: `Compile CUE language, class and builtin declarations into a snapshot.

Prints per-category counts and the snapshot fingerprint. With --format json
the full snapshot is included. With --output the snapshot JSON is written
to a file.

The specs directory defaults to the "specs" entry of builtingen.yaml.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, specsArg(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "snapshot JSON output file")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	cfg, err := loadConfig(opts.RootOptions, formatter, config.Overrides{Specs: specsDir})
	if err != nil {
		return err
	}

	loadResult, loadErrors := LoadSpecs(cfg.Specs)
	if len(loadErrors) > 0 {
		return loadFailure(formatter, loadErrors)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, cfg.Specs)

	result, err := summarize(loadResult.Snapshot)
	if err != nil {
		_ = formatter.Error(ErrCodeBuildFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting snapshot", err)
	}
	logger.Debug("compiled specs",
		zap.String("specs", cfg.Specs),
		zap.Int("builtins", result.Builtins),
		zap.String("fingerprint", result.Fingerprint),
	)

	if opts.Output != "" {
		data, err := json.MarshalIndent(result.Snapshot, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "marshaling snapshot", err)
		}
		if _, err := writeOutputFile(opts.Output, append(data, '\n')); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputCompileText(formatter, result, opts.Output)
	return nil
}

// summarize fingerprints a snapshot and counts its categories.
func summarize(snap *ir.Snapshot) (*CompilationResult, error) {
	fp, err := snap.Fingerprint()
	if err != nil {
		return nil, err
	}
	counts := snap.CategoryCounts()
	categories := make(map[string]int, len(ir.AllCategories))
	for _, c := range ir.AllCategories {
		categories[c.String()] = counts[c]
	}
	return &CompilationResult{
		Fingerprint: fp,
		Languages:   len(snap.Languages),
		Builtins:    len(snap.Builtins),
		Categories:  categories,
		Snapshot:    snap,
	}, nil
}

func outputCompileText(formatter *OutputFormatter, result *CompilationResult, outputFile string) {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d builtin(s), %d language(s)\n\n", result.Builtins, result.Languages)

	fmt.Fprintln(w, "Categories:")
	for _, c := range ir.AllCategories {
		fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", result.Categories[c.String()])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Fingerprint: %s\n", result.Fingerprint)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote snapshot to %s\n", outputFile)
	}
}
