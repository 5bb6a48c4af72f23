package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/builtingen/internal/catalog"
	"github.com/roach88/builtingen/internal/compiler"
	"github.com/roach88/builtingen/internal/config"
	"github.com/roach88/builtingen/internal/ir"
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Snapshot  *ir.Snapshot
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", formatPos(e.Pos), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CLIError converts the load error to its response form.
func (e *LoadError) CLIError() CLIError {
	ce := CLIError{Code: e.Code, Message: e.Message}
	if e.Pos.IsValid() {
		ce.Position = formatPos(e.Pos)
	}
	return ce
}

func formatPos(pos token.Pos) string {
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

// LoadSpecs compiles the CUE package in dir into a snapshot. A nil result
// means the directory itself could not be loaded; otherwise errs holds every
// compile error.
func LoadSpecs(dir string) (*LoadResult, []*LoadError) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []*LoadError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []*LoadError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []*LoadError{{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadDir(cuecontext.New(), dir)
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeLoadFailed, Message: err.Error()}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	keeper, compileErrs := compiler.Compile(value)
	if len(compileErrs) > 0 {
		errs := make([]*LoadError, len(compileErrs))
		for i, err := range compileErrs {
			errs[i] = convertCompileError(err)
		}
		return result, errs
	}

	snap, err := catalog.Load(keeper)
	if err != nil {
		return result, []*LoadError{{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building snapshot: %v", err)}}
	}
	if len(snap.Builtins) == 0 {
		return result, []*LoadError{{Code: ErrCodeNoBuiltins, Message: fmt.Sprintf("no builtins found in %s", dir)}}
	}
	result.Snapshot = snap
	return result, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Field != "" && compileErr.Field != "cue" {
			msg = compileErr.Field + ": " + msg
		}
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // Snapshot build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoBuiltins  = "E008" // Specs declare no builtins
	ErrCodeConfig      = "E009" // Config file error
	ErrCodeStore       = "E010" // Snapshot store error
	ErrCodeEmitFailed  = "E011" // Emission failed
	ErrCodeUsage       = "E012" // Conflicting or missing flags
	ErrCodeTestFailed  = "E013" // One or more scenarios failed

	// Spec compile errors
	ErrCodeClass           = "E101" // Invalid class declaration
	ErrCodeBuiltinClasses  = "E102" // Unknown or non-builtin class on a builtin
	ErrCodeRequiredField   = "E103" // type or attributes missing
	ErrCodeUnknownLanguage = "E104" // lang names no declared language
	ErrCodeLanguage        = "E105" // Invalid language declaration
	ErrCodeBuiltinField    = "E106" // Unknown or mistyped builtin field
)

// MapFieldToErrorCode maps a compiler error field such as
// "builtin.abs.type" or "class.MathLib.parents" to an error code.
func MapFieldToErrorCode(field string) string {
	parts := strings.Split(field, ".")
	switch parts[0] {
	case "cue":
		return ErrCodeLoadFailed
	case "class":
		return ErrCodeClass
	case "language":
		return ErrCodeLanguage
	case "builtin":
		if len(parts) < 3 {
			return ErrCodeBuiltinField
		}
		switch parts[len(parts)-1] {
		case "classes":
			return ErrCodeBuiltinClasses
		case "type", "attributes":
			return ErrCodeRequiredField
		case "lang":
			return ErrCodeUnknownLanguage
		default:
			return ErrCodeBuiltinField
		}
	default:
		return ErrCodeGeneric
	}
}

// loadFailure reports load errors and returns the matching exit error.
func loadFailure(formatter *OutputFormatter, errs []*LoadError) error {
	if len(errs) == 1 && !errs[0].Pos.IsValid() {
		_ = formatter.Error(errs[0].Code, errs[0].Message, nil)
		return NewExitError(ExitCommandError, errs[0].Error())
	}
	cliErrs := make([]CLIError, len(errs))
	for i, e := range errs {
		cliErrs[i] = e.CLIError()
	}
	_ = formatter.Errors("Compilation failed", cliErrs)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// loadConfig loads the project config and applies command-line overrides
// to a copy of it.
func loadConfig(opts *RootOptions, formatter *OutputFormatter, o config.Overrides) (*config.Config, error) {
	cfg, err := opts.Config()
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	merged := *cfg
	merged.ApplyOverrides(o)
	return &merged, nil
}

// specsArg returns the optional specs directory argument.
func specsArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
