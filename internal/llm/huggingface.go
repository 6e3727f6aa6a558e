package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"smsgpt/internal/config"
	"smsgpt/internal/retry"
	"log/slog"
)

var ErrInvalidModel = errors.New("model is required")

// assistantMarker отделяет реплику модели в сыром тексте генерации.
const assistantMarker = "Assistant:"

type HuggingFaceClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	policy     retry.Policy
	logger     *slog.Logger
}

func NewHuggingFaceClient(cfg config.HuggingFaceConfig, httpClient *http.Client, logger *slog.Logger) *HuggingFaceClient {
	return &HuggingFaceClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: httpClient,
		policy:     retry.DefaultPolicy(),
		logger:     logger,
	}
}

// Generate отправляет историю диалога в text-generation API и возвращает
// реплику ассистента. Транзиентные ошибки (429, 5xx, обрывы соединения)
// перепробуются по политике retry.
func (c *HuggingFaceClient) Generate(ctx context.Context, history []Message) (string, error) {
	if c.model == "" {
		return "", ErrInvalidModel
	}

	requestBody := generateRequest{
		Inputs: buildPrompt(history),
		Parameters: generateParameters{
			Temperature:  0.7,
			MaxNewTokens: 300,
		},
	}
	buf, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	resp, body, err := retry.DoHTTP(ctx, c.policy, c.logger, func(ctx context.Context) (*http.Response, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
		if err != nil {
			return nil, nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp, nil, fmt.Errorf("read response: %w", err)
		}
		return resp, respBody, nil
	})
	if err != nil {
		return "", fmt.Errorf("huggingface request failed: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	reply, err := parseGeneratedText(body)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// buildPrompt сворачивает историю в один текстовый prompt формата
// "User: ...\nAssistant: ...\n", завершая строкой-приглашением "Assistant:".
func buildPrompt(history []Message) string {
	var b strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString(assistantMarker)
	return b.String()
}

// parseGeneratedText извлекает реплику ассистента из ответа API.
// API возвращает либо список [{"generated_text": ...}], либо объект.
func parseGeneratedText(body []byte) (string, error) {
	var raw string

	var asList []generatedText
	if err := json.Unmarshal(body, &asList); err == nil && len(asList) > 0 {
		raw = asList[0].GeneratedText
	} else {
		var asObject generatedText
		if err := json.Unmarshal(body, &asObject); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		raw = asObject.GeneratedText
	}

	// Генерация содержит весь prompt: берём текст после последнего маркера.
	reply := raw
	if idx := strings.LastIndex(raw, assistantMarker); idx >= 0 {
		reply = raw[idx+len(assistantMarker):]
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("empty response from model")
	}
	return reply, nil
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	Temperature  float64 `json:"temperature"`
	MaxNewTokens int     `json:"max_new_tokens"`
}

type generatedText struct {
	GeneratedText string `json:"generated_text"`
}
