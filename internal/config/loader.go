package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// ${VAR} references anywhere in the document are expanded from the
// environment before decoding, so secrets never need to live in the file.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.Expand(string(raw), func(name string) string {
		// Leave $name untouched; only ${name} expands, so YAML content
		// containing bare dollars survives.
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return ""
	})

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must not be negative"))
	}
	if tls := cfg.Server.TLS; tls != nil {
		if tls.CertFile == "" || tls.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls requires both cert_file and key_file"))
		}
	}
	for _, origin := range cfg.Server.CORSAllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("server.cors_allowed_origins entry %q must be \"*\" or an http(s) origin", origin))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; narrative generation will be unavailable")
	}
	if len(cfg.Providers.LLMFallbacks) > 0 && cfg.Providers.LLM.Name == "" {
		errs = append(errs, fmt.Errorf("providers.llm_fallbacks requires a primary providers.llm"))
	}

	// Embeddings ↔ database dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Database.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but database.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Database.PostgresDSN == "" {
		slog.Warn("database.postgres_dsn is empty; campaigns will not survive restarts")
	}

	// Generator tuning
	if cfg.Generator.Temperature < 0 || cfg.Generator.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generator.temperature %.2f is out of range [0, 2]", cfg.Generator.Temperature))
	}
	if cfg.Generator.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("generator.max_tokens must not be negative"))
	}
	if cfg.Generator.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("generator.max_retries must not be negative"))
	}
	if cfg.Generator.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("generator.retry_backoff must not be negative"))
	}

	// Prompt overlay
	if p := cfg.Prompts.OverlayPath; p != "" {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, fmt.Errorf("prompts.overlay_path %q: %w", p, err))
		}
	}

	if cfg.Knowledge.LockTimeout < 0 {
		errs = append(errs, fmt.Errorf("knowledge.lock_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
