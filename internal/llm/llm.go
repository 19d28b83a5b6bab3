// Package llm dispatches prompts to one of the supported model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrUnsupportedProvider is returned by Resolve for provider names outside the
// supported set.
var ErrUnsupportedProvider = errors.New("unsupported LLM provider")

// Provider generates text from a prompt. Implementations are safe for
// concurrent use.
type Provider interface {
	// Generate produces a completion for the prompt. Network and provider
	// failures surface as a generation error; the orchestrator does not retry.
	Generate(ctx context.Context, prompt string) (string, error)
	// Descriptor identifies the provider and model, e.g. "Groq (llama-3.3-70b-versatile)".
	Descriptor() string
}

// Options holds generation settings shared by all providers. Low temperature
// and a fixed output budget keep answers deterministic and latency bounded.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOptions returns the standard generation settings.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.1,
		MaxTokens:   1500,
		Timeout:     120 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	if o.Temperature == 0 {
		o.Temperature = 0.1
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 1500
	}
	if o.Timeout == 0 {
		o.Timeout = 120 * time.Second
	}
	return o
}

// Default model per provider when the request does not name one.
const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultGeminiModel = "gemini-1.5-flash"
)

// Resolve returns the provider implementation for name, using model or the
// provider's default. Credentials come from the environment; a missing key
// does not fail resolution, the provider fails at call time instead, so
// startup never depends on credentials. Unknown names return
// ErrUnsupportedProvider.
func Resolve(name, model string, opts Options) (Provider, error) {
	opts = opts.withDefaults()
	switch name {
	case "openai":
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewChatCompletionsProvider("OpenAI", "https://api.openai.com/v1", os.Getenv("OPENAI_API_KEY"), model, opts), nil
	case "groq":
		if model == "" {
			model = defaultGroqModel
		}
		return NewChatCompletionsProvider("Groq", "https://api.groq.com/openai/v1", os.Getenv("GROQ_API_KEY"), model, opts), nil
	case "gemini":
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiProvider("https://generativelanguage.googleapis.com", os.Getenv("GOOGLE_API_KEY"), model, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}
