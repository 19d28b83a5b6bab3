package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/counselhq/counsel/internal/embedding"
	"github.com/counselhq/counsel/internal/extract"
	"github.com/counselhq/counsel/internal/indexer"
	"github.com/counselhq/counsel/internal/llm"
	"github.com/counselhq/counsel/internal/memory"
	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/internal/websearch"
)

type stubProvider struct {
	replies []string
	errs    []error
	prompts []string
}

func (p *stubProvider) Generate(_ context.Context, prompt string) (string, error) {
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i < len(p.replies) {
		return p.replies[i], nil
	}
	return "stub answer", nil
}

func (p *stubProvider) Descriptor() string { return "Stub (test-model)" }

func stubResolver(p *stubProvider) Resolver {
	return func(name, model string, opts llm.Options) (llm.Provider, error) {
		return p, nil
	}
}

func buildTestIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()
	dir := t.TempDir()
	docs := map[string]string{
		"shares.txt":    "Shareholders may transfer shares subject to board approval.",
		"directors.txt": "Directors owe fiduciary duties to the company.",
	}
	for name, text := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	idx := indexer.NewIndexer(embedding.NewHashEmbedder(64), extract.NewExtractor(), 1000, 200)
	if _, err := idx.Build(context.Background(), dir); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx
}

func tavilyStub(t *testing.T, results int) *websearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type item struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		}
		items := make([]item, 0, results)
		for i := 0; i < results; i++ {
			items = append(items, item{Title: "Result", URL: "https://example.com", Content: "web content", Score: 0.9})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"results": items})
	}))
	t.Cleanup(srv.Close)
	return websearch.NewClient(websearch.Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
}

func TestAskCombinesInternalAndWeb(t *testing.T) {
	provider := &stubProvider{replies: []string{"internal text", "web text"}}
	svc := NewService(buildTestIndexer(t), tavilyStub(t, 2), memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	got, err := svc.Ask(context.Background(), models.AskRequest{Question: "Can shareholders transfer shares subject to board approval?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.InternalAnswer != "internal text" || got.WebAnswer != "web text" {
		t.Errorf("answers = %q / %q", got.InternalAnswer, got.WebAnswer)
	}
	want := "**Based on Internal Documents:**\n\ninternal text\n\n**Additional Information from Web Search:**\n\nweb text"
	if got.Answer != want {
		t.Errorf("Answer = %q, want %q", got.Answer, want)
	}
	if got.LLMUsed != "Stub (test-model)" {
		t.Errorf("LLMUsed = %q", got.LLMUsed)
	}
	if len(got.SourcesUsed) == 0 || len(got.SourcesUsed) > 3 {
		t.Errorf("SourcesUsed = %v", got.SourcesUsed)
	}
	if len(got.WebResults) != 2 {
		t.Errorf("WebResults = %d, want 2", len(got.WebResults))
	}
	if got.ProcessingTime < 0 {
		t.Errorf("ProcessingTime = %v", got.ProcessingTime)
	}
	if svc.MemoryStatus().MemorySize != 1 {
		t.Errorf("memory size = %d, want 1", svc.MemoryStatus().MemorySize)
	}
	if len(provider.prompts) != 2 {
		t.Fatalf("generate calls = %d, want 2", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "shares") {
		t.Errorf("internal prompt missing retrieved context: %q", provider.prompts[0])
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	provider := &stubProvider{}
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	_, err := svc.Ask(context.Background(), models.AskRequest{Question: "   "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Ask() error = %v, want ErrInvalidRequest", err)
	}
	if len(provider.prompts) != 0 {
		t.Errorf("generate called %d times on invalid request", len(provider.prompts))
	}
	if svc.MemoryStatus().MemorySize != 0 {
		t.Errorf("memory mutated on invalid request")
	}
}

func TestAskUnsupportedProvider(t *testing.T) {
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10), Config{})

	_, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?", Provider: "claude"})
	if !errors.Is(err, llm.ErrUnsupportedProvider) {
		t.Fatalf("Ask() error = %v, want ErrUnsupportedProvider", err)
	}
	if svc.MemoryStatus().MemorySize != 0 {
		t.Errorf("memory mutated on unsupported provider")
	}
}

func TestAskWebSearchDisabled(t *testing.T) {
	provider := &stubProvider{replies: []string{"internal text"}}
	off := false
	svc := NewService(buildTestIndexer(t), tavilyStub(t, 3), memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	got, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?", UseWebSearch: &off})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.WebAnswer != "No additional information available from web search." {
		t.Errorf("WebAnswer = %q", got.WebAnswer)
	}
	if len(provider.prompts) != 1 {
		t.Errorf("generate calls = %d, want 1", len(provider.prompts))
	}
}

func TestAskNoWebClient(t *testing.T) {
	provider := &stubProvider{replies: []string{"internal text"}}
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	got, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.WebAnswer != "No additional information available from web search." {
		t.Errorf("WebAnswer = %q", got.WebAnswer)
	}
	if len(got.WebResults) != 0 {
		t.Errorf("WebResults = %v", got.WebResults)
	}
}

func TestAskWebGenerationFailureDegrades(t *testing.T) {
	provider := &stubProvider{
		replies: []string{"internal text", ""},
		errs:    []error{nil, errors.New("upstream down")},
	}
	svc := NewService(buildTestIndexer(t), tavilyStub(t, 1), memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	got, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.WebAnswer != "Unable to retrieve additional information from web search." {
		t.Errorf("WebAnswer = %q", got.WebAnswer)
	}
	if got.InternalAnswer != "internal text" {
		t.Errorf("InternalAnswer = %q", got.InternalAnswer)
	}
}

func TestAskInternalFailurePropagates(t *testing.T) {
	provider := &stubProvider{errs: []error{errors.New("upstream down")}}
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	_, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?"})
	if err == nil {
		t.Fatal("Ask() error = nil, want failure")
	}
	if svc.MemoryStatus().MemorySize != 0 {
		t.Errorf("memory mutated on failed generation")
	}
}

func TestAskUninitializedIndex(t *testing.T) {
	provider := &stubProvider{replies: []string{"internal text"}}
	idx := indexer.NewIndexer(embedding.NewHashEmbedder(64), extract.NewExtractor(), 1000, 200)
	svc := NewService(idx, nil, memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	got, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(provider.prompts[0], "No document context available.") {
		t.Errorf("prompt = %q, want document placeholder", provider.prompts[0])
	}
	if len(got.SourcesUsed) != 0 {
		t.Errorf("SourcesUsed = %v, want none", got.SourcesUsed)
	}
}

func TestBulkCapsAtFiveWithoutWebSearch(t *testing.T) {
	provider := &stubProvider{}
	svc := NewService(buildTestIndexer(t), tavilyStub(t, 3), memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	questions := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7"}
	items, err := svc.Bulk(context.Background(), questions, "")
	if err != nil {
		t.Fatalf("Bulk() error = %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("items = %d, want 5", len(items))
	}
	// One generate call per question: web search stays off in bulk mode.
	if len(provider.prompts) != 5 {
		t.Errorf("generate calls = %d, want 5", len(provider.prompts))
	}
	for i, item := range items {
		if item.Error != "" {
			t.Errorf("items[%d].Error = %q", i, item.Error)
		}
		if item.Result == nil {
			t.Errorf("items[%d].Result = nil", i)
		}
	}
}

func TestBulkCapturesPerQuestionErrors(t *testing.T) {
	provider := &stubProvider{}
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10),
		Config{}, WithResolver(stubResolver(provider)))

	items, err := svc.Bulk(context.Background(), []string{"valid question", "  "}, "groq")
	if err != nil {
		t.Fatalf("Bulk() error = %v", err)
	}
	if items[0].Error != "" || items[0].Result == nil {
		t.Errorf("items[0] = %+v, want success", items[0])
	}
	if items[1].Error == "" || items[1].Result != nil {
		t.Errorf("items[1] = %+v, want captured error", items[1])
	}
}

func TestBulkEmpty(t *testing.T) {
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10), Config{})
	if _, err := svc.Bulk(context.Background(), nil, ""); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Bulk() error = %v, want ErrInvalidRequest", err)
	}
}

func TestCapabilitiesAndMemoryStatus(t *testing.T) {
	provider := &stubProvider{}
	svc := NewService(buildTestIndexer(t), nil, memory.NewConversationMemory(10),
		Config{DefaultProvider: "groq", EmbeddingModel: "text-embedding-3-small"},
		WithResolver(stubResolver(provider)))

	caps := svc.Capabilities(extract.SupportedExtensions)
	if caps.WebSearchEnabled {
		t.Error("WebSearchEnabled = true without a client")
	}
	if caps.DefaultLLM != "groq" || caps.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("caps = %+v", caps)
	}
	if !caps.MemoryEnabled || caps.MemorySize != 0 {
		t.Errorf("memory caps = %+v", caps)
	}

	if _, err := svc.Ask(context.Background(), models.AskRequest{Question: "What are director duties?"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	ms := svc.MemoryStatus()
	if ms.MemorySize != 1 || ms.MaxMemory != 10 {
		t.Errorf("MemoryStatus = %+v", ms)
	}
	if len(ms.RecentQuestions) != 1 || ms.RecentQuestions[0] != "What are director duties?" {
		t.Errorf("RecentQuestions = %v", ms.RecentQuestions)
	}
	svc.ClearMemory()
	if svc.MemoryStatus().MemorySize != 0 {
		t.Error("ClearMemory did not empty the buffer")
	}
}
