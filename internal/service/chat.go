package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks chatrelay/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService chatrelay/internal/service ChatService

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chatrelay/internal/contextutil"
	"chatrelay/internal/llm"
	"chatrelay/internal/storage"
)

// LLMClient is an interface for the retrying chat client.
// This interface is defined from the service layer's perspective
// (consumer-first).
type LLMClient interface {
	// Chat sends the message sequence and returns the decoded completion.
	Chat(ctx context.Context, cfg llm.Config, messages []llm.Message) (llm.Completion, error)
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Messages []llm.Message
}

// ChatResponse represents a chat response in the domain layer. Raw is the
// provider response passed through unmodified; Reply is the extracted
// assistant text. ID is empty when the exchange could not be persisted.
type ChatResponse struct {
	ID    string
	Reply string
	Raw   llm.Completion
}

// ChatService provides chat relay functionality.
type ChatService interface {
	// ProcessChat validates a request, relays it upstream and records the
	// exchange.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	client LLMClient
	cfg    llm.Config
	convs  storage.ConversationStore
	logger *slog.Logger
}

// NewChatService creates a new ChatService. convs may be nil, in which
// case exchanges are not recorded.
func NewChatService(client LLMClient, cfg llm.Config, convs storage.ConversationStore) ChatService {
	return &chatService{
		client: client,
		cfg:    cfg,
		convs:  convs,
		logger: slog.Default(),
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validateMessages(req.Messages); err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		return ChatResponse{}, err
	}

	completion, err := s.client.Chat(ctx, s.cfg, req.Messages)
	if err != nil {
		logger.ErrorContext(ctx, "chat relay failed", "error", err)
		if errors.Is(err, llm.ErrMissingAPIKey) {
			// Server-side misconfiguration, not an upstream fault.
			return ChatResponse{}, WrapError(err, "chat client not configured")
		}
		return ChatResponse{}, fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	reply, err := llm.FirstContent(completion)
	if err != nil {
		logger.ErrorContext(ctx, "completion has no usable reply", "error", err)
		return ChatResponse{}, fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	resp := ChatResponse{Reply: reply, Raw: completion}
	resp.ID = s.record(ctx, req.Messages, reply)

	logger.InfoContext(ctx, "chat request processed",
		"conversation_id", resp.ID, "messages", len(req.Messages), "reply_length", len(reply))
	return resp, nil
}

// record persists the exchange and returns its id. A storage failure is
// logged but never loses the reply; the returned id is empty in that case.
func (s *chatService) record(ctx context.Context, messages []llm.Message, reply string) string {
	if s.convs == nil {
		return ""
	}
	logger := contextutil.LoggerFromContext(ctx)

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		logger.ErrorContext(ctx, "failed to marshal messages for storage", "error", err)
		return ""
	}

	conv := &storage.ConversationRecord{
		Model:        s.cfg.Model,
		MessagesJSON: string(messagesJSON),
		Reply:        reply,
	}
	if err := s.convs.Insert(ctx, conv); err != nil {
		logger.ErrorContext(ctx, "failed to record conversation", "error", err)
		return ""
	}
	return conv.ID
}

func validateMessages(messages []llm.Message) error {
	if len(messages) == 0 {
		return &ValidationError{Field: "messages", Message: "cannot be empty"}
	}
	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", msg.Role),
			}
		}
		if msg.Content == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].content", i),
				Message: "cannot be empty",
			}
		}
	}
	return nil
}
