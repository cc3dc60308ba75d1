package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPromptUsesBuiltInTemplates(t *testing.T) {
	pm := NewPromptManager("")
	out, err := pm.RenderPrompt(PromptSQLTransformations, map[string]string{
		"TABLE":    "sales",
		"ANALYSIS": "mention {ANALYSIS} literally",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `table "sales"`)
	assert.Contains(t, out, "mention {ANALYSIS} literally")
}

func TestPromptsDirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PromptStructureAnalysis+".txt"), []byte("cols={COLUMNS}\n"), 0o644))
	pm := NewPromptManager(dir)

	out, err := pm.RenderPrompt(PromptStructureAnalysis, map[string]string{"COLUMNS": "[a]"})
	require.NoError(t, err)
	assert.Equal(t, "cols=[a]", out)

	// templates missing from the directory fall back to the built-in ones
	sys, err := pm.LoadPrompt(PromptSQLTransformationsSystem)
	require.NoError(t, err)
	assert.Contains(t, sys, "expert SQL developer")

	_, err = pm.LoadPrompt("no_such_prompt")
	assert.Error(t, err)
}
