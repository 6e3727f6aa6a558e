package httpserver

import (
	"net/http"

	"smsgpt/internal/middleware"

	"log/slog"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	Logger          *slog.Logger
	IncomingHandler http.Handler
}

// NewRouter собирает chi-роутер с общими middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		WriteText(w, http.StatusOK, "SMS GPT relay is running!")
	})

	r.Post("/incoming", deps.IncomingHandler.ServeHTTP)

	return r
}
