package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsgpt/internal/auth"
	"smsgpt/internal/chat"
	"smsgpt/internal/config"
	"smsgpt/internal/httpserver"
	"smsgpt/internal/llm"
	"smsgpt/internal/sms"
	"smsgpt/internal/transport"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)
	llmClient := llm.NewHuggingFaceClient(cfg.HuggingFace, httpClient, logger)
	if !llm.IsKnownModel(cfg.HuggingFace.Model) {
		logger.Warn("model is not in the verified catalog",
			slog.String("model", cfg.HuggingFace.Model))
	}

	numbers := cfg.SMS.AllowedNumbers
	if cfg.SMS.AllowlistFile != "" {
		extra, err := auth.LoadNumbersFile(cfg.SMS.AllowlistFile)
		if err != nil {
			log.Fatalf("failed to load allowlist file: %v", err)
		}
		numbers = append(numbers, extra...)
	}
	allowlist := auth.NewAllowlist(numbers)
	if allowlist.Size() == 0 {
		logger.Warn("allowlist is empty, all senders will be rejected")
	}

	history := llm.NewMemoryHistoryStore(cfg.SMS.MaxHistoryTurns)
	messenger := sms.NewTelerivetClient(cfg.Telerivet, httpClient, logger)
	coalescer := chat.NewCoalescer(cfg.SMS.CoalesceDelay, messenger, logger)
	chatService := chat.NewService(chat.ServiceConfig{
		Client:    llmClient,
		History:   history,
		Coalescer: coalescer,
		MaxChars:  cfg.SMS.MaxSMSChars,
		Logger:    logger,
	})

	webhookHandler := sms.NewWebhookHandler(sms.WebhookDeps{
		Allowlist:   allowlist,
		Dedup:       chat.NewDedupCache(cfg.SMS.RepeatTimeout),
		Chat:        chatService,
		Logger:      logger,
		TriggerWord: cfg.SMS.TriggerWord,
	})

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:          logger,
		IncomingHandler: webhookHandler,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("model", llm.GetModelName(cfg.HuggingFace.Model)),
			slog.Int("allowlist_size", allowlist.Size()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
