package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "fallback.golden"),
		GoldenFilePath(filepath.Join("scenarios", "fallback.yaml")))
}

func TestGoldenFileUpdateAndCompare(t *testing.T) {
	scenarioFile := filepath.Join(t.TempDir(), "s.yaml")
	result := &Result{Output: "BUILTIN(a, \"v\", \"n\")\n"}

	_, exists, err := CompareGoldenFile(scenarioFile, result)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, UpdateGoldenFile(scenarioFile, result))
	data, err := os.ReadFile(GoldenFilePath(scenarioFile))
	require.NoError(t, err)
	assert.Equal(t, result.Output, string(data))

	match, exists, err := CompareGoldenFile(scenarioFile, result)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, match)

	match, _, err = CompareGoldenFile(scenarioFile, &Result{Output: "changed"})
	require.NoError(t, err)
	assert.False(t, match)
}
