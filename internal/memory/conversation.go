// Package memory provides the bounded conversation history fed back into prompts.
package memory

import (
	"strings"
	"sync"

	"github.com/counselhq/counsel/internal/models"
	"github.com/counselhq/counsel/pkg/utils"
)

// DefaultCapacity is the number of question/answer turns retained.
const DefaultCapacity = 10

// answerContextLimit bounds how much of each stored answer is rendered into
// prompt context.
const answerContextLimit = 200

// ConversationMemory is a fixed-capacity FIFO buffer of recent turns. All
// operations are serialized by a mutex so append-plus-evict is atomic and
// concurrent readers always see a consistent snapshot.
type ConversationMemory struct {
	mu       sync.Mutex
	turns    []models.ConversationTurn
	capacity int
}

// NewConversationMemory returns a memory holding at most capacity turns.
// Non-positive capacity falls back to DefaultCapacity.
func NewConversationMemory(capacity int) *ConversationMemory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ConversationMemory{capacity: capacity}
}

// Append records a turn, evicting the oldest when the buffer is full.
func (m *ConversationMemory) Append(turn models.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	if len(m.turns) > m.capacity {
		m.turns = m.turns[len(m.turns)-m.capacity:]
	}
}

// Recent returns the n most recent turns, oldest first. n larger than the
// current size returns everything.
func (m *ConversationMemory) Recent(n int) []models.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || len(m.turns) == 0 {
		return nil
	}
	if n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]models.ConversationTurn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

// Clear removes all turns.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Size returns the number of stored turns.
func (m *ConversationMemory) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// Capacity returns the maximum number of turns retained.
func (m *ConversationMemory) Capacity() int {
	return m.capacity
}

// RecentQuestions returns the questions of the n most recent turns, oldest first.
func (m *ConversationMemory) RecentQuestions(n int) []string {
	turns := m.Recent(n)
	qs := make([]string, len(turns))
	for i, t := range turns {
		qs[i] = t.Question
	}
	return qs
}

// FormatContext renders the last n turns as prompt context:
// "Q: <question>\nA: <answer truncated to 200 chars>..." joined by newlines.
// Read-only; returns "" when there is no history.
func (m *ConversationMemory) FormatContext(n int) string {
	turns := m.Recent(n)
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = "Q: " + t.Question + "\nA: " + utils.Truncate(t.Answer, answerContextLimit)
	}
	return strings.Join(lines, "\n")
}
