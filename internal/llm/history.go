package llm

import (
	"context"
	"sync"
	"time"
)

// Message представляет один ход диалога.
type Message struct {
	Role      string    `json:"role"`      // "user" или "assistant"
	Content   string    `json:"content"`   // текст сообщения
	Timestamp time.Time `json:"timestamp"` // время добавления
}

// HistoryStore интерфейс для хранения скользящей истории диалога абонента.
type HistoryStore interface {
	// Append добавляет сообщения в конец истории абонента.
	// История усечается до последних K ходов (FIFO: старые вытесняются первыми).
	Append(ctx context.Context, senderID string, messages ...Message) error

	// Snapshot возвращает копию текущей истории в порядке диалога.
	Snapshot(ctx context.Context, senderID string) ([]Message, error)
}

// MemoryHistoryStore потокобезопасное in-memory хранилище историй с ограничением длины.
// Набор ключей-абонентов не ограничен и живёт до конца процесса.
type MemoryHistoryStore struct {
	mu        sync.Mutex
	maxTurns  int
	histories map[string][]Message
}

// NewMemoryHistoryStore создаёт хранилище, удерживающее не более maxTurns
// последних ходов на абонента. При maxTurns <= 0 история не ограничивается.
func NewMemoryHistoryStore(maxTurns int) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		maxTurns:  maxTurns,
		histories: make(map[string][]Message),
	}
}

// Append добавляет ходы и усекает историю до последних maxTurns.
// Чтение-модификация-запись выполняется целиком под блокировкой, поэтому
// конкурентные Append для одного абонента не теряют и не дублируют ходы.
func (s *MemoryHistoryStore) Append(ctx context.Context, senderID string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.histories[senderID], messages...)
	if s.maxTurns > 0 && len(history) > s.maxTurns {
		trimmed := make([]Message, s.maxTurns)
		copy(trimmed, history[len(history)-s.maxTurns:])
		history = trimmed
	}
	s.histories[senderID] = history

	return nil
}

// Snapshot возвращает копию истории, чтобы избежать изменений снаружи.
func (s *MemoryHistoryStore) Snapshot(ctx context.Context, senderID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.histories[senderID]
	if !ok {
		return nil, nil
	}

	snapshot := make([]Message, len(history))
	copy(snapshot, history)
	return snapshot, nil
}
