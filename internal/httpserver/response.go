package httpserver

import "net/http"

// WriteText возвращает плейн-текстовый ответ с заданным статусом.
// Вебхук-провайдеры ожидают короткие текстовые тела, не JSON.
func WriteText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
