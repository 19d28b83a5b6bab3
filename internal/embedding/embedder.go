// Package embedding provides text embedding via a remote model API, with a
// deterministic local fallback when no credential is configured.
package embedding

import "context"

// Embedder produces L2-normalized vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
