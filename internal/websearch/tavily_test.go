package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestClient_Unconfigured(t *testing.T) {
	c := NewClient(Config{}, zap.NewNop())
	if c.Configured() {
		t.Error("client without key should be unconfigured")
	}
	if results := c.Search(context.Background(), "any query", 3); results != nil {
		t.Errorf("unconfigured search should return nil, got %v", results)
	}
}

func TestClient_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotQuery = req.Query
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "Companies Act update", "url": "https://example.com/a", "content": strings.Repeat("x", 600), "score": 0.92},
				{"title": "AGM rules", "url": "https://example.com/b", "content": "short", "score": 0.81},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "tvly-key"}, zap.NewNop())
	results := c.Search(context.Background(), "AGM deadlines", 3)
	if gotQuery != "company law AGM deadlines" {
		t.Errorf("query should carry the domain qualifier, got %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0].Content) > contentLimit+3 {
		t.Errorf("content should be truncated, got %d chars", len(results[0].Content))
	}
	if results[0].RelevanceScore != 0.92 {
		t.Errorf("score: got %f", results[0].RelevanceScore)
	}
}

func TestClient_SearchFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	if results := c.Search(context.Background(), "q", 3); results != nil {
		t.Errorf("failed search should return nil, got %v", results)
	}
}

func TestClient_SearchCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"title": "1", "url": "u1", "content": "c", "score": 0.9},
				{"title": "2", "url": "u2", "content": "c", "score": 0.8},
				{"title": "3", "url": "u3", "content": "c", "score": 0.7},
				{"title": "4", "url": "u4", "content": "c", "score": 0.6},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, zap.NewNop())
	results := c.Search(context.Background(), "q", 2)
	if len(results) != 2 {
		t.Errorf("results should be capped at max, got %d", len(results))
	}
}
