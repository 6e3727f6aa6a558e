package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"smsgpt/internal/config"
	"log/slog"
)

// TelerivetClient отправляет SMS через REST API Telerivet.
// Доставка fire-and-forget: никаких повторов, исход только логируется.
type TelerivetClient struct {
	apiKey     string
	projectID  string
	phoneID    string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTelerivetClient(cfg config.TelerivetConfig, httpClient *http.Client, logger *slog.Logger) *TelerivetClient {
	return &TelerivetClient{
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		phoneID:    cfg.PhoneID,
		baseURL:    cfg.APIBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SendText отправляет текст на номер через сконфигурированный phone_id.
func (c *TelerivetClient) SendText(ctx context.Context, to, text string) error {
	payload := sendMessageRequest{
		ToNumber: to,
		Content:  text,
		PhoneID:  c.phoneID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telerivet request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages/send", c.baseURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telerivet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// API-ключ передаётся как имя пользователя basic auth, пароль пустой.
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute telerivet request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telerivet api status %d: %s", resp.StatusCode, string(respBody))
	}

	var response sendMessageResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		// Сообщение принято провайдером, нечитабельное тело не считаем ошибкой.
		c.logger.Warn("decode telerivet response", slog.String("error", err.Error()))
		return nil
	}

	c.logger.Info("sms queued",
		slog.String("to", to),
		slog.String("message_id", response.ID),
		slog.String("status", response.Status))
	return nil
}
