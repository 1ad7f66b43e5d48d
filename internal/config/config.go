package config

import "os"

// Config holds the backend server configuration.
type Config struct {
	Host     string
	Port     int
	LLMURL   string // URL of the OpenAI-compatible inference server
	Model    string // model name sent with generation requests
	IndexDir string // passage index directory
	DBPath   string // SQLite database path
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Host:     "0.0.0.0",
		Port:     8080,
		LLMURL:   "http://localhost:11435",
		Model:    "careloop",
		IndexDir: IndexDir(),
		DBPath:   DBPath(),
	}
	if url := os.Getenv("CARELOOP_LLM_URL"); url != "" {
		cfg.LLMURL = url
	}
	if model := os.Getenv("CARELOOP_MODEL"); model != "" {
		cfg.Model = model
	}
	return cfg
}

// EnsureDirs creates the required directories if they don't exist.
func EnsureDirs(cfg *Config) error {
	for _, dir := range []string{DataDir(), cfg.IndexDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
