package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/config"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/gemini"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/httpserver"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/preset"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/reframe"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/session"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/task"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/transport"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)

	httpClient := transport.NewHTTPClient(cfg.RequestTimeout)
	geminiClient := gemini.NewHTTPClient(cfg.Gemini, httpClient, logger)

	var sessionStore session.Store
	switch strings.ToLower(cfg.SessionStore) {
	case "file":
		fileStore, err := session.NewFileStore(cfg.SessionPath, cfg.SessionTTL)
		if err != nil {
			log.Fatalf("failed to init session file store: %v", err)
		}
		sessionStore = fileStore
	default:
		sessionStore = session.NewMemoryStore(cfg.SessionTTL)
	}
	sessions := session.NewManager(sessionStore)

	var taskStore task.Store
	switch strings.ToLower(cfg.TaskStore) {
	case "sqlite":
		sqliteStore, err := task.NewSQLiteStore(cfg.TaskStorePath)
		if err != nil {
			log.Fatalf("failed to init sqlite task store: %v", err)
		}
		defer sqliteStore.Close()
		taskStore = sqliteStore
	default:
		fileStore, err := task.NewFileStore(cfg.TaskStorePath)
		if err != nil {
			log.Fatalf("failed to init task file store: %v", err)
		}
		taskStore = fileStore
	}

	presets, err := preset.NewRegistry(cfg.PresetsPath)
	if err != nil {
		log.Fatalf("failed to load presets: %v", err)
	}

	prompt, err := reframe.LoadPrompt(cfg.PromptPath)
	if err != nil {
		log.Fatalf("failed to load prompt template: %v", err)
	}

	articles := article.NewManager(cfg.UploadDir, cfg.MaxUploadBytes)
	fetcher := article.NewFetcher(httpClient, cfg.FetchMaxBytes)

	reframeService := reframe.NewService(reframe.Deps{
		Gemini:     geminiClient,
		Tasks:      taskStore,
		Articles:   articles,
		Presets:    presets,
		Logger:     logger,
		Prompt:     prompt,
		TextModel:  cfg.Gemini.TextModel,
		ImageModel: cfg.Gemini.ImageModel,
	})

	handler := web.NewHandler(web.Deps{
		Sessions:       sessions,
		Articles:       articles,
		Fetcher:        fetcher,
		Presets:        presets,
		Tasks:          taskStore,
		Reframe:        reframeService,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Logger:     logger,
		Handler:    handler,
		SessionTTL: cfg.SessionTTL,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runDraftJanitor(ctx, sessionStore, logger)

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.HTTPAddr))
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

// runDraftJanitor periodically drops expired drafts so abandoned sessions do
// not pile up.
func runDraftJanitor(ctx context.Context, store session.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			deleted, err := store.ClearExpired(ctx, now)
			if err != nil {
				logger.Warn("draft cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if deleted > 0 {
				logger.Info("expired drafts removed", slog.Int("count", deleted))
			}
		}
	}
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
