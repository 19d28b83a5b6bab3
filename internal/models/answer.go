package models

import (
	"fmt"
	"strings"
)

// WebResult is a single ranked web-search snippet. Content is truncated to a
// bounded length before it reaches callers; results are never persisted.
type WebResult struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AskRequest is a single question with provider and web-search options.
type AskRequest struct {
	Question string `json:"question"`
	Provider string `json:"llm_provider,omitempty"`
	Model    string `json:"model_name,omitempty"`
	// UseWebSearch defaults to true when unset (nil).
	UseWebSearch     *bool `json:"use_web_search,omitempty"`
	MaxSearchResults int   `json:"max_search_results,omitempty"`
}

// Validate checks the request and fills defaults. Returns an error if the
// question is empty or whitespace-only; otherwise normalizes provider and
// search-result limits.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.Provider == "" {
		r.Provider = "groq"
	}
	if r.MaxSearchResults <= 0 {
		r.MaxSearchResults = 3
	}
	if r.MaxSearchResults > 10 {
		r.MaxSearchResults = 10
	}
	return nil
}

// WebSearchEnabled reports whether the caller opted into web search.
func (r *AskRequest) WebSearchEnabled() bool {
	if r.UseWebSearch == nil {
		return true
	}
	return *r.UseWebSearch
}

// Answer is the two-part response for a single question.
type Answer struct {
	// Answer is the combined internal + web answer under fixed section labels.
	Answer         string      `json:"answer"`
	InternalAnswer string      `json:"internal_database_answer"`
	WebAnswer      string      `json:"web_search_answer"`
	LLMUsed        string      `json:"llm_used"`
	SourcesUsed    []string    `json:"sources_used"`
	WebResults     []WebResult `json:"web_search_results"`
	// ProcessingTime is wall-clock seconds spent in the pipeline.
	ProcessingTime float64 `json:"processing_time"`
}

// BulkItem is the per-question outcome of a bulk submission. Exactly one of
// Result or Error is set.
type BulkItem struct {
	Question string  `json:"question"`
	Result   *Answer `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}
