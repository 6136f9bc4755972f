// Package config loads and validates the copilot configuration from a YAML
// file plus environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all facelift configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Model capability configuration
	LLM LLMConfig `yaml:"llm"`

	// Image generation settings
	Generation GenerationConfig `yaml:"generation"`

	// Object storage for generated artifacts
	Storage StorageConfig `yaml:"storage"`

	// Hierarchical style memory
	Memory MemoryConfig `yaml:"memory"`

	// Session state persistence
	Session SessionConfig `yaml:"session"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the Gemini capability client.
type LLMConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`       // text/vision/judgment model
	ImageModel string `yaml:"image_model"` // image editing model
	Timeout    string `yaml:"timeout"`
}

// TimeoutDuration returns the parsed call timeout, defaulting to 5 minutes.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GenerationConfig configures the image generation fan-out.
type GenerationConfig struct {
	// Number of design alternatives proposed per analysis
	Alternatives int `yaml:"alternatives"`

	// Directory where generated images are written
	OutputDir string `yaml:"output_dir"`

	// Directory where uploaded images are copied
	UploadsDir string `yaml:"uploads_dir"`
}

// StorageConfig configures best-effort object storage uploads.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Project string `yaml:"project"`
}

// MemoryConfig configures the project/section style memory.
type MemoryConfig struct {
	// Firestore settings; when unavailable the local dir is used alone
	Project  string `yaml:"project"`
	Database string `yaml:"database"`

	// Local fallback/backup directory for keyed JSON records
	LocalDir string `yaml:"local_dir"`
}

// SessionConfig configures session state persistence.
type SessionConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"` // master toggle - false = no logging
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "facelift",
		Version: "0.7.0",

		LLM: LLMConfig{
			BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			Model:      "gemini-3-flash-preview",
			ImageModel: "gemini-3-pro-image-preview",
			Timeout:    "5m",
		},

		Generation: GenerationConfig{
			Alternatives: 3,
			OutputDir:    "static",
			UploadsDir:   "uploads",
		},

		Storage: StorageConfig{
			Enabled: true,
		},

		Memory: MemoryConfig{
			Database: "facelift-memory",
			LocalDir: filepath.Join(".facelift", "memory"),
		},

		Session: SessionConfig{
			DatabasePath: filepath.Join(".facelift", "sessions.db"),
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Missing file is not an error; defaults plus env overrides apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("FACELIFT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if model := os.Getenv("FACELIFT_IMAGE_MODEL"); model != "" {
		c.LLM.ImageModel = model
	}
	if bucket := os.Getenv("GCS_IMAGES_BUCKET"); bucket != "" {
		c.Storage.Bucket = bucket
	}
	if project := os.Getenv("GCP_PROJECT_ID"); project != "" {
		if c.Storage.Project == "" {
			c.Storage.Project = project
		}
		if c.Memory.Project == "" {
			c.Memory.Project = project
		}
	}
	if db := os.Getenv("FIRESTORE_DB"); db != "" {
		c.Memory.Database = db
	}
	// Derive the default bucket name from the project, like the hosted setup
	if c.Storage.Bucket == "" && c.Storage.Project != "" {
		c.Storage.Bucket = c.Storage.Project + "-facelift-images"
	}
}

// Validate checks that required fields for live operation are present.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is required (get a key at https://aistudio.google.com/apikey)")
	}
	if c.Generation.Alternatives <= 0 {
		return fmt.Errorf("generation.alternatives must be positive")
	}
	return nil
}
