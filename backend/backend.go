// Package backend implements the translation backends podraft can draft
// with. A backend is an opaque request/response function: it receives the
// source texts of one batch plus optional glossary rules and few-shot
// examples, and returns one translated string per input text. All
// variants speak HTTP: a local Ollama server, a hosted OpenAI-compatible
// endpoint, Google Gemini (generateContent), or Anthropic (messages).
//
// The variant is selected once at startup; callers only ever see the
// Backend interface. Transport failures, rate limits, and unparseable
// responses are folded into *Error — the dispatcher decides what to do
// with them.
package backend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/podraft/podraft/config"
)

// Variant IDs accepted in provider configuration.
const (
	VariantOllama    = "ollama"
	VariantOpenAI    = "openai"
	VariantGemini    = "gemini"
	VariantAnthropic = "anthropic"
)

// Request carries one batch worth of work to a backend.
type Request struct {
	// Texts are the source strings, in batch order.
	Texts []string
	// Glossary maps terms to their preferred rendering; may be empty.
	Glossary map[string]string
	// Examples are few-shot (source, translation) pairs; may be empty.
	Examples [][2]string
	// Language is the target language code (e.g. "ko").
	Language string
	// LanguageName is the human-readable target language name.
	LanguageName string
}

// Backend is the translation contract. Translate returns one string per
// input text; a missing translation is returned as "" so callers can
// mark the entry skipped rather than failing the batch.
type Backend interface {
	Name() string
	Translate(ctx context.Context, req Request) ([]string, error)
}

// Error wraps any failure of a backend call: HTTP errors, timeouts,
// rate limits, and malformed responses all end up here.
type Error struct {
	Provider string
	Status   int // HTTP status, 0 if not an HTTP-level failure
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend %s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds the backend selected by the provider configuration.
func New(p config.Provider, systemPrompt string) (Backend, error) {
	base := p.BaseURL
	var format apiFormat

	switch p.ID {
	case VariantOllama:
		format = formatOpenAIChat
		if base == "" {
			base = "http://localhost:11434/v1"
		}
	case VariantOpenAI:
		format = formatOpenAIChat
		if base == "" {
			base = "https://api.openai.com/v1"
		}
	case VariantGemini:
		format = formatGeminiNative
		if base == "" {
			base = "https://generativelanguage.googleapis.com"
		}
	case VariantAnthropic:
		format = formatAnthropic
		if base == "" {
			base = "https://api.anthropic.com/v1"
		}
	default:
		return nil, &config.ConfigError{
			Field: "provider.id",
			Msg:   fmt.Sprintf("unknown provider %q (valid: ollama, openai, gemini, anthropic)", p.ID),
		}
	}

	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &httpBackend{
		id:           p.ID,
		format:       format,
		baseURL:      base,
		model:        p.Model,
		apiKey:       p.APIKey,
		systemPrompt: systemPrompt,
		client:       makeHTTPClient(p.Proxy, p.Timeout()),
		rl:           &rateLimitState{},
	}, nil
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause shared by all workers using one backend)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauseEnd = time.Now().Add(duration)
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		if remaining > 100*time.Millisecond {
			remaining = 100 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}
	return nil
}
