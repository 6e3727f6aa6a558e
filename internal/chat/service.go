package chat

import (
	"context"
	"time"

	"smsgpt/internal/llm"
	"log/slog"
)

const (
	// unavailableReply отправляется абоненту при сбое inference-вызова.
	unavailableReply = "HuggingFace API is currently unavailable or rate-limited. Try again later."

	// truncationMarker добавляется к обрезанному исходящему тексту.
	truncationMarker = "\n[...truncated]"
)

// Service связывает историю диалога, inference-шлюз и коалесцер ответов.
// Один вызов Process — одна асинхронная задача на принятое входящее сообщение.
type Service struct {
	client    llm.Client
	history   llm.HistoryStore
	coalescer *Coalescer
	maxChars  int
	logger    *slog.Logger
}

// ServiceConfig конфигурация для создания Service.
type ServiceConfig struct {
	Client    llm.Client
	History   llm.HistoryStore
	Coalescer *Coalescer
	MaxChars  int
	Logger    *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		client:    cfg.Client,
		history:   cfg.History,
		coalescer: cfg.Coalescer,
		maxChars:  cfg.MaxChars,
		logger:    cfg.Logger,
	}
}

// Process выполняет один ход диалога: дописывает реплику пользователя,
// запрашивает модель с накопленным контекстом, при успехе дописывает ответ
// ассистента и ставит его в коалесцер. При сбое модели абонент получает
// фиксированную заглушку, а история хода не сохраняется, чтобы текст ошибки
// не попадал в контекст следующих запросов.
func (s *Service) Process(ctx context.Context, sender, prompt string) {
	userTurn := llm.Message{Role: llm.RoleUser, Content: prompt, Timestamp: time.Now()}
	if err := s.history.Append(ctx, sender, userTurn); err != nil {
		s.logger.Error("append user turn", slog.String("sender", sender), slog.String("error", err.Error()))
	}

	history, err := s.history.Snapshot(ctx, sender)
	if err != nil {
		s.logger.Error("snapshot history", slog.String("sender", sender), slog.String("error", err.Error()))
		history = []llm.Message{userTurn}
	}

	reply, err := s.client.Generate(ctx, history)
	if err != nil {
		s.logger.Error("inference failed",
			slog.String("sender", sender),
			slog.String("error", err.Error()))
		s.coalescer.Schedule(sender, truncate(unavailableReply, s.maxChars))
		return
	}

	assistantTurn := llm.Message{Role: llm.RoleAssistant, Content: reply, Timestamp: time.Now()}
	if err := s.history.Append(ctx, sender, assistantTurn); err != nil {
		s.logger.Error("append assistant turn", slog.String("sender", sender), slog.String("error", err.Error()))
	}

	s.coalescer.Schedule(sender, truncate(reply, s.maxChars))
}

// truncate обрезает текст до max символов, добавляя маркер усечения.
// Считаем в рунах, чтобы не резать посреди UTF-8 последовательности.
func truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}
