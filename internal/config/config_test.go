package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Engine.MaxIterations != 8 || cfg.LLM.Timeout != 60*time.Second || cfg.Store.Backend != BackendSQLite {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadLayersFileDotEnvAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := "llm:\n  provider: gemini\n  model: gemini-2.0-flash\nstore:\n  backend: memory\n"
	if err := os.WriteFile(Path(dir), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("DRIVETHRU_ENGINE_MAX_ITERATIONS", "3")
	t.Setenv("DRIVETHRU_LLM_TIMEOUT", "5s")

	cfg, err := Load(dir, NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("file values not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Engine.MaxIterations != 3 || cfg.LLM.Timeout != 5*time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Store.Backend != BackendMemory || cfg.Log.Level != "info" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Provider != ProviderMistral {
		t.Fatalf("expected default provider")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"provider":  "llm:\n  provider: openai\n",
		"timeout":   "llm:\n  timeout: 0s\n",
		"backend":   "store:\n  backend: etcd\n",
		"redis":     "store:\n  backend: redis\n",
		"iter":      "engine:\n  max_iterations: 0\n",
		"base path": "server:\n  base_path: v1\n",
		"webhook":   "notify:\n  webhooks: [ftp://example.com]\n",
		"level":     "log:\n  level: loud\n",
	}
	for name, yml := range cases {
		if _, err := FromYAML([]byte(yml)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		} else if !strings.HasPrefix(err.Error(), "config.") {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}
