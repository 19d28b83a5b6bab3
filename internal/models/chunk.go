// Package models defines core data structures for chunks, questions, answers, and status.
package models

import "time"

// Chunk is a bounded passage of source text with provenance metadata.
// Chunks are immutable once created; identity is (Source, ChunkID).
type Chunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	ChunkID string `json:"chunk_id"`
}

// ConversationTurn is one question/answer exchange stored in conversation memory.
type ConversationTurn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemStatus is the snapshot written by a successful index build.
type SystemStatus struct {
	DocumentsLoaded int       `json:"documents_loaded"`
	ChunksCreated   int       `json:"chunks_created"`
	LastUpdated     time.Time `json:"last_updated"`
}
