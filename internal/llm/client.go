package llm

import "context"

// Роли сообщений в истории диалога.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client минимальный публичный интерфейс inference-клиента.
// История передаётся целиком: модель получает контекст на каждом ходе.
type Client interface {
	Generate(ctx context.Context, history []Message) (string, error)
}
