package memory

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/counselhq/counsel/internal/models"
)

func turn(q, a string) models.ConversationTurn {
	return models.ConversationTurn{Question: q, Answer: a, Timestamp: time.Now()}
}

func TestConversationMemory_Eviction(t *testing.T) {
	m := NewConversationMemory(10)
	for i := 0; i < 11; i++ {
		m.Append(turn(fmt.Sprintf("q%d", i), "a"))
	}
	if m.Size() != 10 {
		t.Fatalf("Size=%d, want 10", m.Size())
	}
	recent := m.Recent(10)
	if recent[0].Question != "q1" {
		t.Errorf("oldest turn should be q1 after eviction, got %s", recent[0].Question)
	}
	if recent[9].Question != "q10" {
		t.Errorf("newest turn should be q10, got %s", recent[9].Question)
	}
}

func TestConversationMemory_Clear(t *testing.T) {
	m := NewConversationMemory(10)
	m.Append(turn("q", "a"))
	m.Clear()
	if m.Size() != 0 {
		t.Errorf("Size after Clear=%d", m.Size())
	}
	if m.FormatContext(3) != "" {
		t.Error("context after Clear should be empty")
	}
}

func TestConversationMemory_RecentOrder(t *testing.T) {
	m := NewConversationMemory(10)
	m.Append(turn("first", "a1"))
	m.Append(turn("second", "a2"))
	recent := m.Recent(3)
	if len(recent) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(recent))
	}
	if recent[0].Question != "first" || recent[1].Question != "second" {
		t.Errorf("insertion order not preserved: %v", recent)
	}
}

func TestConversationMemory_FormatContext(t *testing.T) {
	m := NewConversationMemory(10)
	longAnswer := strings.Repeat("a", 300)
	m.Append(turn("What is a quorum?", longAnswer))
	ctx := m.FormatContext(3)
	if !strings.HasPrefix(ctx, "Q: What is a quorum?\nA: ") {
		t.Errorf("unexpected format: %q", ctx)
	}
	if !strings.HasSuffix(ctx, "...") {
		t.Error("long answer should be truncated with ellipsis")
	}
	if len(ctx) > len("Q: What is a quorum?\nA: ")+200+3 {
		t.Errorf("answer not bounded: %d chars", len(ctx))
	}
}

func TestConversationMemory_FormatContextLastN(t *testing.T) {
	m := NewConversationMemory(10)
	for i := 0; i < 5; i++ {
		m.Append(turn(fmt.Sprintf("q%d", i), "a"))
	}
	ctx := m.FormatContext(3)
	if strings.Contains(ctx, "q0") || strings.Contains(ctx, "q1") {
		t.Errorf("context should hold only the last 3 turns: %q", ctx)
	}
	for _, q := range []string{"q2", "q3", "q4"} {
		if !strings.Contains(ctx, q) {
			t.Errorf("context missing %s: %q", q, ctx)
		}
	}
}

func TestConversationMemory_RecentQuestions(t *testing.T) {
	m := NewConversationMemory(10)
	m.Append(turn("alpha", "x"))
	m.Append(turn("beta", "y"))
	qs := m.RecentQuestions(5)
	if len(qs) != 2 || qs[0] != "alpha" || qs[1] != "beta" {
		t.Errorf("RecentQuestions=%v", qs)
	}
}
