// File: internal/agent/memory.go
package agent

import (
	"sync"
)

// ConversationMemory keeps the most recent turns of a session, oldest first.
// It is safe for concurrent use.
type ConversationMemory struct {
	mu       sync.RWMutex
	capacity int
	turns    []ConversationTurn
}

// NewConversationMemory creates a memory bounded to capacity turns. A
// non-positive capacity is treated as 1.
func NewConversationMemory(capacity int) *ConversationMemory {
	if capacity < 1 {
		capacity = 1
	}
	return &ConversationMemory{
		capacity: capacity,
		turns:    make([]ConversationTurn, 0, capacity),
	}
}

// Record appends a turn, dropping the oldest once the bound is exceeded.
func (m *ConversationMemory) Record(turn ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turn)
	if over := len(m.turns) - m.capacity; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(m.turns, m.turns[over:])
		m.turns = m.turns[:n]
	}
}

// Recent returns up to n of the newest turns, oldest first.
func (m *ConversationMemory) Recent(n int) []ConversationTurn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || len(m.turns) == 0 {
		return nil
	}
	if n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]ConversationTurn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}
