package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/compiler"
	"github.com/roach88/builtingen/internal/config"
	"github.com/roach88/builtingen/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Database string
	List     bool // list stored imports instead of importing
}

// ImportResult describes a stored snapshot.
type ImportResult struct {
	Import   store.Import `json:"import"`
	Inserted bool         `json:"inserted"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [specs-dir]",
		Short: "Store a compiled snapshot in a database",
		Long: `Compile and validate CUE builtin specs and store the snapshot in a SQLite
database. Importing a snapshot whose fingerprint is already stored returns
the existing import. "emit --db" emits the latest import.

The database defaults to the "database" entry of builtingen.yaml.

Examples:
  builtingen import ./specs --db builtins.db
  builtingen import --db builtins.db --list`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, specsArg(args), cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "database path")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list stored imports")

	return cmd
}

func runImport(opts *ImportOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	cfg, err := loadConfig(opts.RootOptions, formatter, config.Overrides{
		Specs:    specsDir,
		Database: opts.Database,
	})
	if err != nil {
		return err
	}
	if cfg.Database == "" {
		_ = formatter.Error(ErrCodeUsage, "no database: pass --db or set database in "+config.DefaultFileName, nil)
		return NewExitError(ExitCommandError, "no database configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.List {
		return listImports(ctx, cfg.Database, formatter, logger)
	}

	loadResult, loadErrors := LoadSpecs(cfg.Specs)
	if len(loadErrors) > 0 {
		return loadFailure(formatter, loadErrors)
	}

	if vErrs := compiler.Validate(loadResult.Snapshot); compiler.HasErrors(vErrs) {
		var result ValidationResult
		for _, ve := range vErrs {
			if ve.IsWarning() {
				result.Warnings = append(result.Warnings, ValidationFinding{ValidationError: ve})
			} else {
				result.Errors = append(result.Errors, ValidationFinding{ValidationError: ve})
			}
		}
		return outputValidationErrors(formatter, &result)
	}

	s, err := store.Open(cfg.Database, store.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer s.Close()

	source, err := filepath.Abs(cfg.Specs)
	if err != nil {
		source = cfg.Specs
	}

	imp, inserted, err := s.SaveSnapshot(ctx, loadResult.Snapshot, source)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("saving snapshot: %v", err), nil)
		return WrapExitError(ExitCommandError, "saving snapshot", err)
	}
	logger.Debug("imported snapshot",
		zap.String("import_id", imp.ID),
		zap.Bool("inserted", inserted),
	)

	if formatter.JSON() {
		return formatter.Success(ImportResult{Import: imp, Inserted: inserted})
	}
	if inserted {
		fmt.Fprintf(formatter.Writer, "✓ Imported %d builtin(s) as %s\n", imp.BuiltinCount, imp.ID)
	} else {
		fmt.Fprintf(formatter.Writer, "✓ Snapshot already imported as %s (now latest)\n", imp.ID)
	}
	fmt.Fprintf(formatter.Writer, "Fingerprint: %s\n", imp.Fingerprint)
	return nil
}

func listImports(ctx context.Context, path string, formatter *OutputFormatter, logger *zap.Logger) error {
	s, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer s.Close()

	imports, err := s.Imports(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, fmt.Sprintf("listing imports: %v", err), nil)
		return WrapExitError(ExitCommandError, "listing imports", err)
	}

	if formatter.JSON() {
		if imports == nil {
			imports = []store.Import{}
		}
		return formatter.Success(imports)
	}
	if len(imports) == 0 {
		fmt.Fprintln(formatter.Writer, "No imports.")
		return nil
	}
	for _, imp := range imports {
		fmt.Fprintf(formatter.Writer, "%d  %s  %d builtin(s)  %s\n", imp.Seq, imp.ID, imp.BuiltinCount, imp.Source)
	}
	return nil
}
