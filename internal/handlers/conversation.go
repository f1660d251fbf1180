package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"chatrelay/internal/contextutil"
	"chatrelay/internal/llm"
	"chatrelay/internal/storage"
)

// ConversationHandler serves stored chat exchanges as rendered HTML pages.
// Assistant replies are markdown more often than not, so the reply is run
// through goldmark.
type ConversationHandler struct {
	convs    storage.ConversationStore
	renderer goldmark.Markdown
	template *template.Template
}

// conversationPageData holds template data for rendered exchange pages.
type conversationPageData struct {
	ID        string
	Model     string
	CreatedAt string
	Messages  []llm.Message
	Reply     template.HTML
}

const conversationPageHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Conversation {{.ID}}</title>
  <style>
    body { font-family: -apple-system, 'Segoe UI', sans-serif; max-width: 800px; margin: 0 auto; padding: 2rem; line-height: 1.6; }
    .meta { color: #666; font-size: 0.9rem; margin-bottom: 1.5rem; }
    .turn { margin: 0.75rem 0; padding: 0.75rem 1rem; border-radius: 8px; background: #f4f4f5; }
    .turn .role { font-weight: 600; color: #444; margin-right: 0.5rem; text-transform: capitalize; }
    .reply { margin-top: 1.5rem; padding: 1rem; border: 1px solid #ddd; border-radius: 8px; }
    pre { background: #f4f4f5; padding: 0.75rem; overflow-x: auto; border-radius: 6px; }
    code { font-family: Consolas, Menlo, monospace; }
  </style>
</head>
<body>
  <h1>Conversation</h1>
  <p class="meta">id: {{.ID}} &middot; model: {{.Model}} &middot; {{.CreatedAt}}</p>
  {{range .Messages}}<div class="turn"><span class="role">{{.Role}}</span>{{.Content}}</div>
  {{end}}
  <div class="reply">{{.Reply}}</div>
</body>
</html>`

// NewConversationHandler creates a handler for serving stored exchanges.
func NewConversationHandler(convs storage.ConversationStore) *ConversationHandler {
	return &ConversationHandler{
		convs: convs,
		renderer: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Strikethrough,
				extension.Linkify,
			),
		),
		template: template.Must(template.New("conversation").Parse(conversationPageHTML)),
	}
}

// ServeHTTP handles GET requests for a single stored exchange.
func (h *ConversationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing conversation id")
		return
	}

	conv, err := h.convs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		logger.ErrorContext(ctx, "failed to load conversation", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	var messages []llm.Message
	if err := json.Unmarshal([]byte(conv.MessagesJSON), &messages); err != nil {
		logger.ErrorContext(ctx, "stored messages are not valid JSON", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Stored conversation is corrupt")
		return
	}

	var rendered bytes.Buffer
	if err := h.renderer.Convert([]byte(conv.Reply), &rendered); err != nil {
		logger.ErrorContext(ctx, "failed to render reply markdown", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to render conversation")
		return
	}

	data := conversationPageData{
		ID:        conv.ID,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt.Format("2006-01-02 15:04:05 MST"),
		Messages:  messages,
		Reply:     template.HTML(rendered.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, data); err != nil {
		logger.ErrorContext(ctx, "failed to execute template", "error", err, "id", id)
	}
}
