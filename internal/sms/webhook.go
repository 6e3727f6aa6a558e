package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"smsgpt/internal/auth"
	"smsgpt/internal/httpserver"
	"log/slog"
)

// processTimeout ограничивает фоновую задачу обработки одного сообщения
// (inference с ретраями плюс постановка ответа в коалесцер).
const processTimeout = 2 * time.Minute

// ChatService асинхронно обрабатывает принятое сообщение абонента.
type ChatService interface {
	Process(ctx context.Context, sender, prompt string)
}

// Deduper решает, принимать ли сообщение или это недавний повтор.
type Deduper interface {
	Admit(sender, body string, now time.Time) bool
}

type WebhookDeps struct {
	Allowlist   *auth.Allowlist
	Dedup       Deduper
	Chat        ChatService
	Logger      *slog.Logger
	TriggerWord string
}

// WebhookHandler принимает входящие SMS-вебхуки. Синхронный путь только
// валидирует и ставит задачу: ни одного сетевого вызова до ответа клиенту.
type WebhookHandler struct {
	allowlist *auth.Allowlist
	dedup     Deduper
	chat      ChatService
	logger    *slog.Logger
	trigger   string
}

func NewWebhookHandler(deps WebhookDeps) *WebhookHandler {
	return &WebhookHandler{
		allowlist: deps.Allowlist,
		dedup:     deps.Dedup,
		chat:      deps.Chat,
		logger:    deps.Logger,
		trigger:   deps.TriggerWord,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	msg, err := parseInbound(r)
	if err != nil {
		httpserver.WriteText(w, http.StatusBadRequest, "Bad Request")
		return
	}

	from := strings.TrimSpace(msg.FromNumber)
	if from == "" {
		httpserver.WriteText(w, http.StatusBadRequest, "Bad Request")
		return
	}

	if !h.allowlist.Allowed(from) {
		h.logger.Warn("unauthorized sender", slog.String("from", from))
		httpserver.WriteText(w, http.StatusForbidden, "Unauthorized")
		return
	}

	trimmed := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(h.trigger)) {
		h.logger.Info("ignoring message without trigger", slog.String("from", from))
		httpserver.WriteText(w, http.StatusOK, "Ignored")
		return
	}

	// Дубликаты режем по исходному телу, включая триггерное слово.
	if !h.dedup.Admit(from, msg.Content, time.Now()) {
		h.logger.Info("duplicate message suppressed", slog.String("from", from))
		httpserver.WriteText(w, http.StatusOK, "Duplicate ignored")
		return
	}

	prompt := strings.TrimSpace(trimmed[len(h.trigger):])
	h.logger.Info("prompt accepted",
		slog.String("from", from),
		slog.Int("prompt_len", len(prompt)))

	// Ответ клиенту не ждёт ни inference, ни доставки: задача живёт на
	// собственном контексте, отвязанном от запроса.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		h.chat.Process(ctx, from, prompt)
	}()

	httpserver.WriteText(w, http.StatusOK, "OK")
}

// parseInbound читает тело вебхука: JSON или form-encoded.
func parseInbound(r *http.Request) (inboundMessage, error) {
	var msg inboundMessage

	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			return inboundMessage{}, err
		}
		return msg, nil
	}

	if err := r.ParseForm(); err != nil {
		return inboundMessage{}, err
	}
	msg.FromNumber = r.PostForm.Get("from_number")
	msg.Content = r.PostForm.Get("content")
	return msg, nil
}
