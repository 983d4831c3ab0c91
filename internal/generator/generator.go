// Package generator is the single gateway between the world-state services
// and the LLM backend.
//
// No other component may depend on a concrete model vendor: services hand the
// generator a rendered system/user prompt pair and get back plain text, a
// structured map, or a chunk stream. In tests the whole thing is replaced by
// a scripted [llm.Provider] mock returning canned responses.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/metric"

	"github.com/lorekeeperhq/lorekeeper/internal/lorerr"
	"github.com/lorekeeperhq/lorekeeper/internal/observe"
	"github.com/lorekeeperhq/lorekeeper/pkg/provider/llm"
)

// Config carries the construction-time settings for a [Generator]. Zero
// values fall back to the defaults noted per field.
type Config struct {
	// ProviderName labels the backend in logs and metrics ("openai",
	// "anthropic", "mock", ...).
	ProviderName string

	// Temperature is the default sampling temperature. Default: 0.8.
	Temperature float64

	// MaxTokens is the default completion cap. Default: 2000.
	MaxTokens int

	// MaxRetries bounds retry attempts in [Generator.GenerateWithRetry].
	// Default: 3.
	MaxRetries int

	// RetryBackoff is the initial backoff delay, doubled per attempt.
	// Default: 500ms.
	RetryBackoff time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// Generator wraps an [llm.Provider] with prompt plumbing, retries, and
// lenient structured-output parsing. Safe for concurrent use.
type Generator struct {
	provider     llm.Provider
	providerName string
	temperature  float64
	maxTokens    int
	maxRetries   int
	backoff      time.Duration
	log          *slog.Logger
	metrics      *observe.Metrics
}

// New creates a Generator over the given provider.
func New(p llm.Provider, cfg Config) *Generator {
	if cfg.ProviderName == "" {
		cfg.ProviderName = "unknown"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Generator{
		provider:     p,
		providerName: cfg.ProviderName,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   cfg.MaxRetries,
		backoff:      cfg.RetryBackoff,
		log:          cfg.Logger.With(slog.String("component", "generator")),
		metrics:      cfg.Metrics,
	}
}

// ─── Per-call options ────────────────────────────────────────────────────────

// request carries the per-call parameters resolved from Options.
type request struct {
	temperature float64
	maxTokens   int
	history     []llm.Message
}

// Option adjusts a single generation call.
type Option func(*request)

// WithTemperature overrides the default sampling temperature for one call.
func WithTemperature(t float64) Option {
	return func(r *request) { r.temperature = t }
}

// WithMaxTokens overrides the default completion cap for one call.
func WithMaxTokens(n int) Option {
	return func(r *request) { r.maxTokens = n }
}

// WithHistory prepends prior conversation messages before the user prompt.
func WithHistory(messages []llm.Message) Option {
	return func(r *request) { r.history = messages }
}

func (g *Generator) resolve(opts []Option) request {
	r := request{temperature: g.temperature, maxTokens: g.maxTokens}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (g *Generator) buildRequest(system, user string, r request) llm.CompletionRequest {
	messages := make([]llm.Message, 0, len(r.history)+1)
	messages = append(messages, r.history...)
	messages = append(messages, llm.Message{Role: "user", Content: user})
	return llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: system,
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	}
}

// ─── Generation ──────────────────────────────────────────────────────────────

// Generate performs a single blocking completion and returns the full text.
func (g *Generator) Generate(ctx context.Context, system, user string, opts ...Option) (string, error) {
	r := g.resolve(opts)
	start := time.Now()
	resp, err := g.provider.Complete(ctx, g.buildRequest(system, user, r))
	g.metrics.GeneratorDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("kind", "generate")))
	if err != nil {
		g.metrics.RecordGeneratorRequest(ctx, g.providerName, "generate", "error")
		g.metrics.RecordGeneratorError(ctx, g.providerName, "generate")
		return "", fmt.Errorf("generator: complete: %w", err)
	}
	g.metrics.RecordGeneratorRequest(ctx, g.providerName, "generate", "ok")
	if resp == nil {
		return "", nil
	}
	g.log.DebugContext(ctx, "completion finished",
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))
	return resp.Content, nil
}

// GenerateStructured performs a completion and parses the response as a JSON
// object, applying a progressively more lenient extraction ladder. It never
// fails on malformed model output: if no JSON object can be recovered, the
// returned map is the parse-error sentinel (see [Sentinel]) so callers can
// degrade gracefully instead of aborting their unit of work.
func (g *Generator) GenerateStructured(ctx context.Context, system, user string, opts ...Option) (map[string]any, error) {
	raw, err := g.Generate(ctx, system, user, opts...)
	if err != nil {
		return nil, err
	}
	m, tier := ExtractJSON(raw)
	if tier != TierRaw {
		g.metrics.RecordParseFallback(ctx, string(tier))
		g.log.WarnContext(ctx, "structured output recovered via fallback",
			slog.String("tier", string(tier)))
	}
	return m, nil
}

// GenerateWithRetry behaves like Generate but retries transient failures
// (rate limits and 5xx responses) with exponential backoff. Non-transient
// errors propagate immediately. When all attempts fail the returned error
// wraps [lorerr.ErrGeneratorUnavailable].
func (g *Generator) GenerateWithRetry(ctx context.Context, system, user string, opts ...Option) (string, error) {
	var lastErr error
	delay := g.backoff
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.metrics.GeneratorRetries.Add(ctx, 1)
			g.log.WarnContext(ctx, "retrying generation",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.String("error", lastErr.Error()))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("generator: retry wait: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, err := g.Generate(ctx, system, user, opts...)
		if err == nil {
			return text, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("generator: gave up after %d attempts: %w: %w",
		g.maxRetries+1, lorerr.ErrGeneratorUnavailable, lastErr)
}

// GenerateStructuredWithRetry combines GenerateWithRetry and the extraction
// ladder of GenerateStructured.
func (g *Generator) GenerateStructuredWithRetry(ctx context.Context, system, user string, opts ...Option) (map[string]any, error) {
	raw, err := g.GenerateWithRetry(ctx, system, user, opts...)
	if err != nil {
		return nil, err
	}
	m, tier := ExtractJSON(raw)
	if tier != TierRaw {
		g.metrics.RecordParseFallback(ctx, string(tier))
		g.log.WarnContext(ctx, "structured output recovered via fallback",
			slog.String("tier", string(tier)))
	}
	return m, nil
}

// GenerateStreaming starts a streaming completion and returns a channel of
// text chunks. The channel is closed when the stream finishes or ctx is
// cancelled. Callers must drain the channel.
func (g *Generator) GenerateStreaming(ctx context.Context, system, user string, opts ...Option) (<-chan string, error) {
	r := g.resolve(opts)
	chunks, err := g.provider.StreamCompletion(ctx, g.buildRequest(system, user, r))
	if err != nil {
		g.metrics.RecordGeneratorRequest(ctx, g.providerName, "stream", "error")
		g.metrics.RecordGeneratorError(ctx, g.providerName, "stream")
		return nil, fmt.Errorf("generator: start stream: %w", err)
	}
	g.metrics.RecordGeneratorRequest(ctx, g.providerName, "stream", "ok")

	out := make(chan string)
	go func() {
		defer close(out)
		for chunk := range chunks {
			if chunk.FinishReason == "error" {
				g.metrics.RecordGeneratorError(ctx, g.providerName, "stream")
				g.log.ErrorContext(ctx, "stream aborted by provider")
				return
			}
			if chunk.Text == "" {
				continue
			}
			select {
			case out <- chunk.Text:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ─── Transient error classification ──────────────────────────────────────────

// transientMarkers are matched case-insensitively against error text from
// backends that do not surface typed API errors.
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"internal server error",
	"service unavailable",
	"bad gateway",
	"overloaded",
	"502",
	"503",
	"504",
}

// IsTransient reports whether err is a rate-limit or server-side failure
// worth retrying. Anything else (auth errors, malformed requests, context
// cancellation) is permanent from the generator's point of view.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
