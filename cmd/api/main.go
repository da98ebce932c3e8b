// Package main is the entry point for the assistant API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studyhub-ai/assistant-api/internal/chat"
	"github.com/studyhub-ai/assistant-api/internal/config"
	"github.com/studyhub-ai/assistant-api/internal/credstore"
	"github.com/studyhub-ai/assistant-api/internal/dispatch"
	"github.com/studyhub-ai/assistant-api/internal/docstore"
	"github.com/studyhub-ai/assistant-api/internal/events"
	"github.com/studyhub-ai/assistant-api/internal/google"
	"github.com/studyhub-ai/assistant-api/internal/handler"
	"github.com/studyhub-ai/assistant-api/internal/history"
	"github.com/studyhub-ai/assistant-api/internal/intent"
	"github.com/studyhub-ai/assistant-api/internal/llm"
	"github.com/studyhub-ai/assistant-api/internal/middleware"
	"github.com/studyhub-ai/assistant-api/pkg/logger"
	"github.com/studyhub-ai/assistant-api/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting assistant API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect the side-effect audit stream. Auditing is optional; the
	// dispatcher runs without it.
	var audit *events.Publisher
	if cfg.NATSURL != "" {
		audit, err = events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log.Logger)
		if err != nil {
			log.Warn("failed to connect to NATS, auditing disabled", zap.Error(err))
			audit = nil
		} else {
			defer audit.Close()
		}
	}

	// Open the credential store
	creds, err := credstore.Open(cfg.CredentialsDB)
	if err != nil {
		log.Error("failed to open credential store", zap.Error(err))
		os.Exit(1)
	}
	defer creds.Close()

	// Connect the document store. Optional; collection routes return 503
	// without it.
	var docs *docstore.Store
	if cfg.RedisURL != "" {
		docs, err = docstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("failed to connect to redis, collections disabled", zap.Error(err))
			docs = nil
		} else {
			defer docs.Close()
		}
	}

	// Conversation history
	store := history.NewStore(cfg.HistoryFile, log.Logger)

	// Initialize LLM client
	llmProvider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.OpenAIAPIKey
	if llmProvider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	} else if apiKey == "" && cfg.AnthropicAPIKey != "" {
		llmProvider = llm.ProviderAnthropic
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(llmProvider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Google provider bindings
	oauth := google.NewOAuthConfig(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.OAuthRedirectURL,
		cfg.JWTSecret,
	)
	resolver := google.NewResolver(creds, oauth)

	// Intent extraction and side-effect dispatch
	extractor := &intent.Extractor{DefaultTimezone: cfg.DefaultTimezone}
	dispatcher := dispatch.NewDispatcher(extractor, audit, log.Logger)

	// Turn orchestrator
	chatSvc := chat.NewService(store, llmClient, resolver, dispatcher, chat.Config{
		Model:           cfg.ChatModel,
		MaxTokens:       cfg.ChatMaxTokens,
		HistoryWindow:   cfg.HistoryWindow,
		DefaultTimezone: cfg.DefaultTimezone,
	}, log.Logger)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(audit, docs)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	calendarHandler := handler.NewCalendarHandler(resolver, oauth, creds, cfg.DefaultTimezone, log)
	credentialsHandler := handler.NewCredentialsHandler(creds, oauth, log)
	mailHandler := handler.NewMailHandler(resolver, log)
	collectionsHandler := handler.NewCollectionsHandler(docs, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// OAuth redirect flow: Google calls back here, so it stays outside auth.
	r.Get("/calendar/authorize", calendarHandler.Authorize)
	r.Get("/oauth2callback", calendarHandler.OAuthCallback)

	// Application routes
	r.Group(func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Send)
		r.Route("/chat/history/{id}", func(r chi.Router) {
			r.Get("/", chatHandler.History)
			r.Delete("/", chatHandler.ClearHistory)
		})

		r.Post("/calendar/create-event", calendarHandler.CreateEvent)
		r.Get("/calendar/events", calendarHandler.ListEvents)

		r.Post("/set-user-credentials", credentialsHandler.Set)
		r.Post("/auth/callback", credentialsHandler.AuthCallback)

		r.Get("/mail/search", mailHandler.Search)

		r.Get("/todos", collectionsHandler.ListTodos)
		r.Post("/todos", collectionsHandler.CreateTodoList)
		r.Get("/events", collectionsHandler.ListEvents)
		r.Get("/assignments", collectionsHandler.ListAssignments)
		r.Get("/exams", collectionsHandler.ListExams)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
