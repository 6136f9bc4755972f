package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLoggingConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".facelift")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func resetLoggingState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
}

func TestCategoriesCreateLogFiles(t *testing.T) {
	tempDir := t.TempDir()

	writeLoggingConfig(t, tempDir, `{
		"logging": {
			"level": "debug",
			"debug_mode": true
		}
	}`)

	resetLoggingState()
	defer resetLoggingState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	Vision("inventory built: %d elements", 4)
	Design("proposal complete")
	Generate("fan-out started: %d instructions", 3)
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".facelift", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	found := map[string]bool{}
	for _, e := range entries {
		for _, cat := range []string{"vision", "design", "generate"} {
			if strings.Contains(e.Name(), cat) {
				found[cat] = true
			}
		}
	}
	for _, cat := range []string{"vision", "design", "generate"} {
		if !found[cat] {
			t.Errorf("Expected log file for category %q, got %v", cat, entries)
		}
	}
}

func TestApplyConfigOverridesFileConfig(t *testing.T) {
	tempDir := t.TempDir()

	resetLoggingState()
	defer resetLoggingState()

	// No config.json on disk: Initialize leaves logging off.
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Fatal("Expected logging off without any config")
	}

	// The application config turns debug mode on and disables a category.
	err := ApplyConfig(Settings{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"design": false},
	})
	if err != nil {
		t.Fatalf("ApplyConfig: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode after ApplyConfig")
	}
	if IsCategoryEnabled(CategoryDesign) {
		t.Error("Expected design category disabled")
	}
	if !IsCategoryEnabled(CategoryVision) {
		t.Error("Expected unnamed categories enabled by default")
	}

	Vision("inventory built")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".facelift", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	var sawVision bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "vision") {
			sawVision = true
		}
	}
	if !sawVision {
		t.Error("Expected a vision log file after ApplyConfig enabled logging")
	}
}

func TestProductionModeWritesNothing(t *testing.T) {
	tempDir := t.TempDir()

	// No config file at all = production mode
	resetLoggingState()
	defer resetLoggingState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Fatal("Expected production mode")
	}

	Session("should not be written")
	Verify("neither should this")

	if _, err := os.Stat(filepath.Join(tempDir, ".facelift", "logs")); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory in production mode, stat err=%v", err)
	}
}

func TestCategoryToggle(t *testing.T) {
	tempDir := t.TempDir()

	writeLoggingConfig(t, tempDir, `{
		"logging": {
			"level": "info",
			"debug_mode": true,
			"categories": {
				"memory": false,
				"storage": true
			}
		}
	}`)

	resetLoggingState()
	defer resetLoggingState()

	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if IsCategoryEnabled(CategoryMemory) {
		t.Error("memory category should be disabled")
	}
	if !IsCategoryEnabled(CategoryStorage) {
		t.Error("storage category should be enabled")
	}
	// Unlisted categories default to enabled in debug mode
	if !IsCategoryEnabled(CategoryVerify) {
		t.Error("unlisted category should default to enabled")
	}
}
