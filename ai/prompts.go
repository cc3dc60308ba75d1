package ai

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// Global map to track initialized prompt directories (to avoid duplicate logs)
var (
	initializedDirs   = make(map[string]bool)
	initializedDirsMu sync.RWMutex
)

// Prompt template names
const (
	PromptStructureAnalysis        = "structure_analysis"
	PromptStructureAnalysisSystem  = "structure_analysis_system"
	PromptSQLTransformations       = "sql_transformations"
	PromptSQLTransformationsSystem = "sql_transformations_system"
)

// PromptManager - Simple external prompt loader. Templates found in
// PromptsDir override the built-in ones of the same name.
type PromptManager struct {
	PromptsDir string
}

// NewPromptManager creates a prompt manager
func NewPromptManager(promptsDir string) *PromptManager {
	if promptsDir != "" {
		// Only log initialization once per directory
		initializedDirsMu.Lock()
		if !initializedDirs[promptsDir] {
			initializedDirs[promptsDir] = true
			log.Printf("[PromptManager] Initialized for directory: %s", promptsDir)
		}
		initializedDirsMu.Unlock()
	}

	return &PromptManager{PromptsDir: promptsDir}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	if pm.PromptsDir != "" {
		path := filepath.Join(pm.PromptsDir, name+".txt")
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
	}

	content, err := defaultPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	// single pass, so values containing placeholders are left alone
	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}

	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template)), nil
}
