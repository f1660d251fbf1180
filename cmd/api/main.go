package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"chatrelay/internal/config"
	"chatrelay/internal/http"
	"chatrelay/internal/llm"
	"chatrelay/internal/service"
	"chatrelay/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	// Create repository instances
	conversationRepo := storage.NewConversationRepo(db)
	userRepo := storage.NewUserRepo(db)

	// Create upstream chat client (external service layer)
	chatClient := llm.NewClient()
	chatConfig := cfg.ChatConfig()

	// Create services
	chatService := service.NewChatService(chatClient, chatConfig, conversationRepo)
	datasetService := service.NewDatasetService(userRepo)

	// Create router with dependencies
	deps := &http.Deps{
		ChatService:    chatService,
		DatasetService: datasetService,
		Conversations:  conversationRepo,
		DB:             db,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("Upstream chat configuration", "endpoint", chatConfig.Endpoint, "model", chatConfig.Model)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
