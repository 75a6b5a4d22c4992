package agent

import (
	"fmt"
	"sync"
	"testing"

	providertypes "assistbot/pkg/provider/types"
)

func TestMemoryAppendExchangeIsPerSender(t *testing.T) {
	m := NewMemory(5)
	m.AppendExchange("u1", "hello", "hi")
	m.AppendExchange("u2", "other", "reply")

	entries := m.List("u1")
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Role != providertypes.RoleUser || entries[0].Content != "hello" {
		t.Fatalf("first entry = %#v", entries[0])
	}
	if entries[1].Role != providertypes.RoleAssistant || entries[1].Content != "hi" {
		t.Fatalf("second entry = %#v", entries[1])
	}
	if got := len(m.List("u2")); got != 2 {
		t.Fatalf("other sender entries = %d, want 2", got)
	}
	if got := m.List("u3"); got != nil {
		t.Fatalf("unknown sender entries = %#v, want nil", got)
	}
}

func TestMemoryIgnoresBlankEntries(t *testing.T) {
	m := NewMemory(5)
	m.AppendExchange("u1", "  ", "answer")
	m.AppendExchange("", "question", "answer")
	m.AppendExchange("u1", "question", "")

	if got := len(m.List("u1")); got != 0 {
		t.Fatalf("entries = %d, want 0", got)
	}
}

func TestMemoryKeepsLastExchanges(t *testing.T) {
	m := NewMemory(2)
	for i := 1; i <= 3; i++ {
		m.AppendExchange("u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := m.Turns("u1")
	if len(turns) != 4 {
		t.Fatalf("len(turns) = %d, want 4", len(turns))
	}
	if turns[0].Content != "q2" || turns[3].Content != "a3" {
		t.Fatalf("turns = %#v", turns)
	}
}

func TestMemoryListReturnsCopy(t *testing.T) {
	m := NewMemory(2)
	m.AppendExchange("u1", "q", "a")

	entries := m.List("u1")
	entries[0].Content = "changed"

	if got := m.List("u1")[0].Content; got != "q" {
		t.Fatalf("stored content = %q, want q", got)
	}
}

func TestMemoryConcurrentAppendExchange(t *testing.T) {
	m := NewMemory(100)
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.AppendExchange("u1", "hello", "hi")
		}()
	}

	wg.Wait()

	if got := len(m.List("u1")); got != 2*n {
		t.Fatalf("len(entries) = %d, want %d", got, 2*n)
	}
}
