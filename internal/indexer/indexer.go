package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/counselhq/counsel/internal/embedding"
	"github.com/counselhq/counsel/internal/extract"
	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/internal/vector"
	"go.uber.org/zap"
)

// Indexer builds the semantic index from a folder of legal documents and
// serves similarity retrieval over it. The index is rebuilt from scratch on
// every Build and published atomically: readers never observe a partial index.
type Indexer struct {
	embedder  embedding.Embedder
	extractor *extract.Extractor
	chunker   *Chunker
	logger    *zap.Logger

	mu     sync.RWMutex
	index  *vector.MemoryIndex
	chunks map[string]models.Chunk
	status models.SystemStatus
	ready  bool
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for build and retrieval events.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(embedder embedding.Embedder, extractor *extract.Extractor, chunkSize, chunkOverlap int, opts ...Option) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		extractor: extractor,
		chunker:   NewChunker(chunkSize, chunkOverlap),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build rebuilds the index from the documents in folder. Files with an
// unsupported extension are ignored; a file whose extraction fails is logged
// and skipped so one bad document does not abort the build. Returns an error
// (leaving any previously published index untouched) when the folder has no
// eligible files or no text could be extracted at all.
func (idx *Indexer) Build(ctx context.Context, folder string) (models.SystemStatus, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return models.SystemStatus{}, fmt.Errorf("read documents folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if extract.Supported(strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return models.SystemStatus{}, fmt.Errorf("no supported documents found in %s (supported: %s)",
			folder, strings.Join(extract.SupportedExtensions, ", "))
	}

	var allChunks []models.Chunk
	for _, name := range files {
		text, err := idx.extractor.Extract(filepath.Join(folder, name))
		if err != nil {
			idx.logger.Warn("text extraction failed, skipping document",
				zap.String("file", name), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		allChunks = append(allChunks, idx.chunker.Chunk(text, name)...)
	}
	if len(allChunks) == 0 {
		return models.SystemStatus{}, fmt.Errorf("no text content extracted from documents")
	}

	texts := make([]string, len(allChunks))
	for i, ch := range allChunks {
		texts[i] = ch.Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return models.SystemStatus{}, fmt.Errorf("embed chunks: %w", err)
	}

	dims := len(embeddings[0])
	index, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return models.SystemStatus{}, fmt.Errorf("create vector index: %w", err)
	}
	ids := make([]string, len(allChunks))
	chunkTable := make(map[string]models.Chunk, len(allChunks))
	for i, ch := range allChunks {
		ids[i] = ch.ChunkID
		chunkTable[ch.ChunkID] = ch
	}
	if err := index.Add(ctx, ids, embeddings); err != nil {
		return models.SystemStatus{}, fmt.Errorf("index vectors: %w", err)
	}

	status := models.SystemStatus{
		DocumentsLoaded: len(files),
		ChunksCreated:   len(allChunks),
		LastUpdated:     time.Now(),
	}

	idx.mu.Lock()
	idx.index = index
	idx.chunks = chunkTable
	idx.status = status
	idx.ready = true
	idx.mu.Unlock()

	idx.logger.Info("index built",
		zap.Int("documents", status.DocumentsLoaded),
		zap.Int("chunks", status.ChunksCreated))
	return status, nil
}

// Retrieve returns the top-k chunks most similar to query. When the index has
// not been built yet it returns an empty result and no error: callers treat
// this as "no internal context".
func (idx *Indexer) Retrieve(ctx context.Context, query string, k int) ([]models.Chunk, error) {
	idx.mu.RLock()
	index := idx.index
	chunkTable := idx.chunks
	ready := idx.ready
	idx.mu.RUnlock()
	if !ready {
		return nil, nil
	}

	vec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	chunks := make([]models.Chunk, 0, len(hits))
	for _, h := range hits {
		if ch, ok := chunkTable[h.ID]; ok {
			chunks = append(chunks, ch)
		}
	}
	return chunks, nil
}

// Ready reports whether a successful build has been published.
func (idx *Indexer) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ready
}

// Status returns the snapshot from the last successful build. ok is false
// before the first successful build.
func (idx *Indexer) Status() (status models.SystemStatus, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.status, idx.ready
}
