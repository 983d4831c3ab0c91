package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lorekeeperhq/lorekeeper/internal/config"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/embeddings"
	embmock "github.com/lorekeeperhq/lorekeeper/pkg/provider/embeddings/mock"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
	llmmock "github.com/lorekeeperhq/lorekeeper/pkg/provider/llm/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info
  cors_allowed_origins:
    - "https://app.example.com"
  shutdown_timeout: 15s

database:
  postgres_dsn: "postgres://localhost:5432/lorekeeper"
  embedding_dimensions: 1536

providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
  llm_fallbacks:
    - name: ollama
      base_url: http://localhost:11434
      model: llama3
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small

generator:
  temperature: 0.8
  max_tokens: 2000
  max_retries: 2
  retry_backoff: 500ms

knowledge:
  lock_timeout: 10s
`

func loadSample(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

// ── schema ───────────────────────────────────────────────────────────────────

func TestLoadFullConfig(t *testing.T) {
	t.Parallel()
	cfg := loadSample(t)

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr: got %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("shutdown_timeout: got %v", cfg.Server.ShutdownTimeout)
	}
	if len(cfg.Server.CORSAllowedOrigins) != 1 || cfg.Server.CORSAllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("cors_allowed_origins: got %v", cfg.Server.CORSAllowedOrigins)
	}
	if cfg.Database.PostgresDSN == "" {
		t.Error("postgres_dsn should be set")
	}
	if cfg.Database.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions: got %d", cfg.Database.EmbeddingDimensions)
	}
	if cfg.Providers.LLM.Name != "openai" || cfg.Providers.LLM.Model != "gpt-4o" {
		t.Errorf("llm provider: got %+v", cfg.Providers.LLM)
	}
	if len(cfg.Providers.LLMFallbacks) != 1 || cfg.Providers.LLMFallbacks[0].Name != "ollama" {
		t.Errorf("llm_fallbacks: got %+v", cfg.Providers.LLMFallbacks)
	}
	if cfg.Providers.Embeddings.Model != "text-embedding-3-small" {
		t.Errorf("embeddings model: got %q", cfg.Providers.Embeddings.Model)
	}
	if cfg.Generator.Temperature != 0.8 || cfg.Generator.MaxTokens != 2000 {
		t.Errorf("generator: got %+v", cfg.Generator)
	}
	if cfg.Generator.RetryBackoff != 500*time.Millisecond {
		t.Errorf("retry_backoff: got %v", cfg.Generator.RetryBackoff)
	}
	if cfg.Knowledge.LockTimeout != 10*time.Second {
		t.Errorf("lock_timeout: got %v", cfg.Knowledge.LockTimeout)
	}
}

func TestLogLevelIsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error("verbose should not be valid")
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistryCreateLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	_, err := reg.CreateLLM(config.ProviderEntry{Name: "openai"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}

	var seen config.ProviderEntry
	reg.RegisterLLM("openai", func(e config.ProviderEntry) (llm.Provider, error) {
		seen = e
		return &llmmock.Provider{}, nil
	})

	p, err := reg.CreateLLM(config.ProviderEntry{Name: "openai", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("provider should not be nil")
	}
	if seen.Model != "gpt-4o" {
		t.Errorf("factory should receive the entry, got %+v", seen)
	}
}

func TestRegistryCreateEmbeddings(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	_, err := reg.CreateEmbeddings(config.ProviderEntry{Name: "ollama"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("expected ErrProviderNotRegistered, got %v", err)
	}

	reg.RegisterEmbeddings("ollama", func(config.ProviderEntry) (embeddings.Provider, error) {
		return &embmock.Provider{}, nil
	})
	if _, err := reg.CreateEmbeddings(config.ProviderEntry{Name: "ollama"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistryOverwritesRegistration(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()

	reg.RegisterLLM("openai", func(config.ProviderEntry) (llm.Provider, error) {
		t.Error("first factory should have been replaced")
		return nil, nil
	})
	reg.RegisterLLM("openai", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "openai"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
