// Package answer orchestrates the question-answering pipeline: retrieval, web
// search, prompt composition, generation, and conversation memory.
package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/counselhq/counsel/internal/indexer"
	"github.com/counselhq/counsel/internal/llm"
	"github.com/counselhq/counsel/internal/memory"
	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/internal/prompt"
	"github.com/counselhq/counsel/internal/websearch"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidRequest marks client-input errors (empty question, empty bulk
// list). The HTTP layer maps it, and llm.ErrUnsupportedProvider, to 4xx.
var ErrInvalidRequest = errors.New("invalid request")

// Placeholder strings substituted on degraded sub-stages. These are part of
// the response contract, not just log text.
const (
	noContextPlaceholder = "No document context available."
	noWebResultsAnswer   = "No additional information available from web search."
	webFailureAnswer     = "Unable to retrieve additional information from web search."
)

// memoryContextTurns is how many prior turns feed each prompt.
const memoryContextTurns = 3

// maxSourcesReported caps the deduplicated source list in responses.
const maxSourcesReported = 3

// maxWebResultsReported caps the web results echoed in responses.
const maxWebResultsReported = 3

// bulkLimit caps how many questions a bulk submission processes.
const bulkLimit = 5

// Resolver maps a provider name and optional model to a Provider. Injectable
// so tests can substitute a stub for the remote APIs.
type Resolver func(name, model string, opts llm.Options) (llm.Provider, error)

// Config holds orchestrator settings.
type Config struct {
	DocumentsFolder string
	TopK            int
	DefaultProvider string
	EmbeddingModel  string
	LLMOptions      llm.Options
}

// Service is the answer pipeline with all its collaborators injected. It owns
// no global state; everything lives on the struct for the process lifetime.
type Service struct {
	indexer   *indexer.Indexer
	webSearch *websearch.Client
	memory    *memory.ConversationMemory
	resolve   Resolver
	cfg       Config
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithResolver overrides the provider resolver.
func WithResolver(r Resolver) Option {
	return func(s *Service) { s.resolve = r }
}

// NewService creates the orchestrator. webSearch may be nil (web search
// disabled); mem must not be nil.
func NewService(idx *indexer.Indexer, ws *websearch.Client, mem *memory.ConversationMemory, cfg Config, opts ...Option) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "groq"
	}
	s := &Service{
		indexer:   idx,
		webSearch: ws,
		memory:    mem,
		resolve:   llm.Resolve,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Rebuild performs a full index rebuild from the documents folder.
func (s *Service) Rebuild(ctx context.Context) (models.SystemStatus, error) {
	return s.indexer.Build(ctx, s.cfg.DocumentsFolder)
}

// Ask answers a single question with the two-part pipeline. Client-input
// problems return ErrInvalidRequest or llm.ErrUnsupportedProvider before any
// side effect; a failed mandatory internal generation propagates; web-stage
// failures degrade to placeholder text.
func (s *Service) Ask(ctx context.Context, req models.AskRequest) (*models.Answer, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	provider, err := s.resolve(req.Provider, req.Model, s.cfg.LLMOptions)
	if err != nil {
		return nil, err
	}

	reqID := uuid.New().String()[:8]
	log := s.logger.With(zap.String("request_id", reqID))
	log.Debug("question received",
		zap.String("provider", provider.Descriptor()),
		zap.Bool("web_search", req.WebSearchEnabled()))

	memoryContext := s.memory.FormatContext(memoryContextTurns)

	// Internal stage always generates, even with no context; the prompt
	// instructs the model to state when the documents do not cover the question.
	docContext := noContextPlaceholder
	var sources []string
	chunks, err := s.indexer.Retrieve(ctx, req.Question, s.cfg.TopK)
	if err != nil {
		log.Warn("retrieval failed, answering without document context", zap.Error(err))
	} else if len(chunks) > 0 {
		docContext = prompt.FormatChunks(chunks)
		sources = dedupeSources(chunks)
	}
	internalAnswer, err := provider.Generate(ctx, prompt.Internal(memoryContext, docContext, req.Question))
	if err != nil {
		log.Error("internal answer generation failed", zap.Error(err))
		return nil, fmt.Errorf("internal answer generation: %w", err)
	}

	// Web stage: opt-in, and only when a search client is configured. All
	// failures here degrade to placeholder text.
	webAnswer := noWebResultsAnswer
	var webResults []models.WebResult
	if req.WebSearchEnabled() && s.webSearch.Configured() {
		webResults = s.webSearch.Search(ctx, req.Question, req.MaxSearchResults)
		if len(webResults) > 0 {
			generated, err := provider.Generate(ctx, prompt.Web(memoryContext, prompt.FormatWebResults(webResults), req.Question))
			if err != nil {
				log.Warn("web answer generation failed", zap.Error(err))
				webAnswer = webFailureAnswer
			} else {
				webAnswer = generated
			}
		}
	}

	combined := fmt.Sprintf("**Based on Internal Documents:**\n\n%s\n\n**Additional Information from Web Search:**\n\n%s",
		internalAnswer, webAnswer)

	s.memory.Append(models.ConversationTurn{
		Question:  req.Question,
		Answer:    combined,
		Timestamp: time.Now(),
	})

	if len(sources) > maxSourcesReported {
		sources = sources[:maxSourcesReported]
	}
	if len(webResults) > maxWebResultsReported {
		webResults = webResults[:maxWebResultsReported]
	}
	elapsed := time.Since(start).Seconds()
	log.Info("question answered",
		zap.Int("sources", len(sources)),
		zap.Int("web_results", len(webResults)),
		zap.Float64("processing_time", elapsed))

	return &models.Answer{
		Answer:         combined,
		InternalAnswer: internalAnswer,
		WebAnswer:      webAnswer,
		LLMUsed:        provider.Descriptor(),
		SourcesUsed:    sources,
		WebResults:     webResults,
		ProcessingTime: elapsed,
	}, nil
}

// Bulk submits up to five questions through the single-question path with web
// search off. Per-question failures are captured; they do not abort the batch.
func (s *Service) Bulk(ctx context.Context, questions []string, providerName string) ([]models.BulkItem, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions provided", ErrInvalidRequest)
	}
	if len(questions) > bulkLimit {
		questions = questions[:bulkLimit]
	}
	if providerName == "" {
		providerName = s.cfg.DefaultProvider
	}
	off := false
	items := make([]models.BulkItem, 0, len(questions))
	for _, q := range questions {
		result, err := s.Ask(ctx, models.AskRequest{
			Question:     q,
			Provider:     providerName,
			UseWebSearch: &off,
		})
		item := models.BulkItem{Question: q}
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Result = result
		}
		items = append(items, item)
	}
	return items, nil
}

// Status returns the last successful build snapshot; ok is false while the
// index is uninitialized.
func (s *Service) Status() (models.SystemStatus, bool) {
	return s.indexer.Status()
}

// ClearMemory wipes the conversation buffer.
func (s *Service) ClearMemory() {
	s.memory.Clear()
}

// MemoryStatus describes the conversation buffer.
type MemoryStatus struct {
	MemorySize      int      `json:"memory_size"`
	MaxMemory       int      `json:"max_memory"`
	RecentQuestions []string `json:"recent_questions"`
}

// MemoryStatus returns the buffer size, capacity, and the last five questions.
func (s *Service) MemoryStatus() MemoryStatus {
	return MemoryStatus{
		MemorySize:      s.memory.Size(),
		MaxMemory:       s.memory.Capacity(),
		RecentQuestions: s.memory.RecentQuestions(5),
	}
}

// Capabilities describes the static feature set plus current memory size.
type Capabilities struct {
	WebSearchEnabled   bool     `json:"web_search_enabled"`
	RetrievalMethod    string   `json:"retrieval_method"`
	SupportedDocuments []string `json:"supported_documents"`
	EmbeddingModel     string   `json:"embedding_model"`
	DefaultLLM         string   `json:"default_llm"`
	MemoryEnabled      bool     `json:"memory_enabled"`
	MemorySize         int      `json:"memory_size"`
}

// Capabilities reports what this deployment can do.
func (s *Service) Capabilities(supportedExtensions []string) Capabilities {
	return Capabilities{
		WebSearchEnabled:   s.webSearch.Configured(),
		RetrievalMethod:    "similarity search",
		SupportedDocuments: supportedExtensions,
		EmbeddingModel:     s.cfg.EmbeddingModel,
		DefaultLLM:         s.cfg.DefaultProvider,
		MemoryEnabled:      true,
		MemorySize:         s.memory.Size(),
	}
}

// dedupeSources returns the distinct source filenames in first-seen order.
func dedupeSources(chunks []models.Chunk) []string {
	seen := make(map[string]bool, len(chunks))
	var sources []string
	for _, ch := range chunks {
		if !seen[ch.Source] {
			seen[ch.Source] = true
			sources = append(sources, ch.Source)
		}
	}
	return sources
}
