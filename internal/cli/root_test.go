package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "builtingen", cmd.Use)
	assert.Contains(t, cmd.Long, "fallback preamble")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "emit", "import", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestEmitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	emitCmd, _, err := cmd.Find([]string{"emit"})
	require.NoError(t, err)

	outputFlag := emitCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
	assert.NotNil(t, emitCmd.Flags().Lookup("db"))
	assert.NotNil(t, emitCmd.Flags().Lookup("watch"))
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	assert.NotNil(t, importCmd.Flags().Lookup("db"))
	assert.NotNil(t, importCmd.Flags().Lookup("list"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(NewRootCommand(), "compile", exampleSpecsDir, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootConfigFile(t *testing.T) {
	dir := t.TempDir()
	specs := filepath.Join(dir, "defs")
	require.NoError(t, os.Mkdir(specs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(specs, "builtins.cue"), []byte(sixSpecs), 0o644))

	cfgPath := filepath.Join(dir, "builtingen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("specs: defs\nmacros:\n  builtin: GENERIC\n"), 0o644))

	out, err := execute(NewRootCommand(), "--config", cfgPath, "emit")
	require.NoError(t, err)
	assert.Contains(t, out, `GENERIC(__builtin_foo, "i.", "n")`)
	assert.Contains(t, out, "#if defined(GENERIC) && !defined(LIBBUILTIN)")
}

func TestRootConfigFileMissing(t *testing.T) {
	out, err := execute(NewRootCommand(), "--config", filepath.Join(t.TempDir(), "nope.yaml"), "compile", exampleSpecsDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfig)
}

func TestRootConfigFileInvalid(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "builtingen.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("specz: defs\n"), 0o644))

	out, err := execute(NewRootCommand(), "--config", cfgPath, "compile", exampleSpecsDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to parse config")
}

func TestRootOptionsLoggerDefaultsToNop(t *testing.T) {
	opts := &RootOptions{}
	logger := opts.Logger()
	require.NotNil(t, logger)
	logger.Info("discarded")
}
