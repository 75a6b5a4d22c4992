package agent

import (
	"strings"
	"sync"
	"time"

	providertypes "assistbot/pkg/provider/types"
)

const defaultMaxExchanges = 10

type MemoryEntry struct {
	Role    providertypes.Role
	Content string
	At      time.Time
}

// Memory keeps the most recent exchanges per sender. One exchange is a user
// turn plus the assistant reply, so a sender holds at most 2*maxExchanges entries.
type Memory struct {
	mu         sync.RWMutex
	maxEntries int
	entries    map[string][]MemoryEntry
}

func NewMemory(maxExchanges int) *Memory {
	if maxExchanges <= 0 {
		maxExchanges = defaultMaxExchanges
	}

	return &Memory{
		maxEntries: maxExchanges * 2,
		entries:    make(map[string][]MemoryEntry),
	}
}

// AppendExchange records a prompt and its reply together.
func (m *Memory) AppendExchange(senderID string, prompt string, reply string) {
	senderID = strings.TrimSpace(senderID)
	prompt = strings.TrimSpace(prompt)
	reply = strings.TrimSpace(reply)
	if senderID == "" || prompt == "" || reply == "" {
		return
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendLocked(senderID, MemoryEntry{Role: providertypes.RoleUser, Content: prompt, At: now})
	m.appendLocked(senderID, MemoryEntry{Role: providertypes.RoleAssistant, Content: reply, At: now})
}

func (m *Memory) appendLocked(senderID string, entry MemoryEntry) {
	entries := append(m.entries[senderID], entry)
	if overflow := len(entries) - m.maxEntries; overflow > 0 {
		entries = append([]MemoryEntry(nil), entries[overflow:]...)
	}
	m.entries[senderID] = entries
}

func (m *Memory) List(senderID string) []MemoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.entries[strings.TrimSpace(senderID)]
	if len(entries) == 0 {
		return nil
	}

	out := make([]MemoryEntry, len(entries))
	copy(out, entries)
	return out
}

// Turns returns the sender history in the shape completion backends expect.
func (m *Memory) Turns(senderID string) []providertypes.Turn {
	entries := m.List(senderID)
	if len(entries) == 0 {
		return nil
	}

	turns := make([]providertypes.Turn, 0, len(entries))
	for _, entry := range entries {
		turns = append(turns, providertypes.Turn{Role: entry.Role, Content: entry.Content})
	}
	return turns
}
