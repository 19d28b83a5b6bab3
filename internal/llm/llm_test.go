package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve_Defaults(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"openai", "OpenAI (gpt-4o-mini)"},
		{"groq", "Groq (llama-3.3-70b-versatile)"},
		{"gemini", "Gemini (gemini-1.5-flash)"},
	}
	for _, tc := range cases {
		p, err := Resolve(tc.provider, "", DefaultOptions())
		if err != nil {
			t.Fatalf("%s: %v", tc.provider, err)
		}
		if p.Descriptor() != tc.want {
			t.Errorf("%s descriptor: got %q, want %q", tc.provider, p.Descriptor(), tc.want)
		}
	}
}

func TestResolve_ExplicitModel(t *testing.T) {
	p, err := Resolve("openai", "gpt-4o", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if p.Descriptor() != "OpenAI (gpt-4o)" {
		t.Errorf("descriptor: got %q", p.Descriptor())
	}
}

func TestResolve_Unsupported(t *testing.T) {
	for _, name := range []string{"claude", "mistral", ""} {
		_, err := Resolve(name, "", DefaultOptions())
		if !errors.Is(err, ErrUnsupportedProvider) {
			t.Errorf("provider %q: expected ErrUnsupportedProvider, got %v", name, err)
		}
	}
}

func TestChatCompletionsProvider_Generate(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "An AGM must be held annually."}},
			},
		})
	}))
	defer srv.Close()

	p := NewChatCompletionsProvider("Groq", srv.URL, "key", "llama-3.3-70b-versatile", DefaultOptions())
	answer, err := p.Generate(context.Background(), "When is the AGM due?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "An AGM must be held annually." {
		t.Errorf("answer: got %q", answer)
	}
	if gotReq.Temperature != 0.1 || gotReq.MaxTokens != 1500 {
		t.Errorf("generation settings: temp=%f max=%d", gotReq.Temperature, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Errorf("messages: %+v", gotReq.Messages)
	}
}

func TestChatCompletionsProvider_MissingKey(t *testing.T) {
	p := NewChatCompletionsProvider("OpenAI", "http://unused", "", "gpt-4o-mini", DefaultOptions())
	if _, err := p.Generate(context.Background(), "q"); err == nil {
		t.Error("missing key should fail at call time")
	}
}

func TestChatCompletionsProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewChatCompletionsProvider("Groq", srv.URL, "key", "m", DefaultOptions())
	if _, err := p.Generate(context.Background(), "q"); err == nil {
		t.Error("5xx should surface as a generation error")
	}
}

func TestGeminiProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "gk" {
			t.Errorf("key param: got %q", r.URL.Query().Get("key"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": "Part one. "}, {"text": "Part two."}},
				}},
			},
		})
	}))
	defer srv.Close()

	p := NewGeminiProvider(srv.URL, "gk", "gemini-1.5-flash", DefaultOptions())
	answer, err := p.Generate(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Part one. Part two." {
		t.Errorf("answer: got %q", answer)
	}
}

func TestGeminiProvider_MissingKey(t *testing.T) {
	p := NewGeminiProvider("http://unused", "", "gemini-1.5-flash", DefaultOptions())
	if _, err := p.Generate(context.Background(), "q"); err == nil {
		t.Error("missing key should fail at call time")
	}
}
