package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatrelay/internal/handlers"
	"chatrelay/internal/service"
	"chatrelay/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	DatasetService service.DatasetService
	Conversations  storage.ConversationStore
	DB             *sql.DB
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	convertHandler := handlers.NewConvertHandler(deps.DatasetService)
	conversationHandler := handlers.NewConversationHandler(deps.Conversations)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/datasets/convert", convertHandler)
		r.Method(http.MethodGet, "/conversations/{id}", conversationHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
