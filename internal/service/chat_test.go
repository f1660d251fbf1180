package service_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"chatrelay/internal/llm"
	"chatrelay/internal/service"
	"chatrelay/internal/service/mocks"
	"chatrelay/internal/storage"

	"go.uber.org/mock/gomock"
)

func init() {
	// Suppress service-layer logs for cleaner test output.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testChatConfig() llm.Config {
	cfg := llm.DefaultConfig("http://example.test/v1/chat/completions")
	cfg.APIKey = "test-key"
	return cfg
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("storage.Migrate() error = %v", err)
	}
	return db
}

func completionWith(content string) llm.Completion {
	return llm.Completion{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestNewChatService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service.NewChatService(mocks.NewMockLLMClient(ctrl), testChatConfig(), nil)
	if svc == nil {
		t.Fatal("NewChatService() returned nil")
	}
}

func TestChatService_ProcessChat(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are a concise assistant."},
		{Role: llm.RoleUser, Content: "hi"},
	}

	tests := []struct {
		name         string
		req          service.ChatRequest
		mockSetup    func(m *mocks.MockLLMClient)
		wantErr      bool
		wantReply    string
		checkErrType func(error) bool
	}{
		{
			name: "successful chat",
			req:  service.ChatRequest{Messages: messages},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().
					Chat(gomock.Any(), gomock.Any(), messages).
					Return(completionWith("hello!"), nil)
			},
			wantReply: "hello!",
		},
		{
			name:      "empty messages",
			req:       service.ChatRequest{},
			mockSetup: func(m *mocks.MockLLMClient) {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr) && validationErr.Field == "messages"
			},
		},
		{
			name: "unknown role",
			req: service.ChatRequest{
				Messages: []llm.Message{{Role: "robot", Content: "beep"}},
			},
			mockSetup: func(m *mocks.MockLLMClient) {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr)
			},
		},
		{
			name: "empty content",
			req: service.ChatRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: ""}},
			},
			mockSetup: func(m *mocks.MockLLMClient) {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr)
			},
		},
		{
			name: "upstream failure maps to external service error",
			req:  service.ChatRequest{Messages: messages},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().
					Chat(gomock.Any(), gomock.Any(), messages).
					Return(nil, &llm.StatusError{Code: 503, Body: "down"})
			},
			wantErr: true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrExternalService)
			},
		},
		{
			name: "missing credential is not an upstream fault",
			req:  service.ChatRequest{Messages: messages},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().
					Chat(gomock.Any(), gomock.Any(), messages).
					Return(nil, llm.ErrMissingAPIKey)
			},
			wantErr: true,
			checkErrType: func(err error) bool {
				return errors.Is(err, llm.ErrMissingAPIKey) && !errors.Is(err, service.ErrExternalService)
			},
		},
		{
			name: "completion without choices",
			req:  service.ChatRequest{Messages: messages},
			mockSetup: func(m *mocks.MockLLMClient) {
				m.EXPECT().
					Chat(gomock.Any(), gomock.Any(), messages).
					Return(llm.Completion{"id": "x"}, nil)
			},
			wantErr: true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrExternalService)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockClient := mocks.NewMockLLMClient(ctrl)
			tt.mockSetup(mockClient)
			svc := service.NewChatService(mockClient, testChatConfig(), nil)

			resp, err := svc.ProcessChat(context.Background(), tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ProcessChat() expected error, got nil")
				}
				if tt.checkErrType != nil && !tt.checkErrType(err) {
					t.Errorf("ProcessChat() error = %v, wrong classification", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProcessChat() unexpected error: %v", err)
			}
			if resp.Reply != tt.wantReply {
				t.Errorf("Reply = %q, want %q", resp.Reply, tt.wantReply)
			}
			if resp.Raw == nil {
				t.Error("Raw completion not passed through")
			}
		})
	}
}

func TestChatService_ProcessChatRecordsExchange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	repo := storage.NewConversationRepo(db)

	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	mockClient := mocks.NewMockLLMClient(ctrl)
	mockClient.EXPECT().
		Chat(gomock.Any(), gomock.Any(), messages).
		Return(completionWith("hello!"), nil)

	svc := service.NewChatService(mockClient, testChatConfig(), repo)

	resp, err := svc.ProcessChat(context.Background(), service.ChatRequest{Messages: messages})
	if err != nil {
		t.Fatalf("ProcessChat() unexpected error: %v", err)
	}
	if resp.ID == "" {
		t.Fatal("ProcessChat() did not record the exchange")
	}

	stored, err := repo.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Reply != "hello!" {
		t.Errorf("stored reply = %q, want %q", stored.Reply, "hello!")
	}
	if stored.Model != "deepseek-chat" {
		t.Errorf("stored model = %q, want deepseek-chat", stored.Model)
	}
}

func TestChatService_StorageFailureDoesNotLoseReply(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := newTestDB(t)
	repo := storage.NewConversationRepo(db)
	_ = db.Close() // Force every insert to fail.

	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	mockClient := mocks.NewMockLLMClient(ctrl)
	mockClient.EXPECT().
		Chat(gomock.Any(), gomock.Any(), messages).
		Return(completionWith("hello!"), nil)

	svc := service.NewChatService(mockClient, testChatConfig(), repo)

	resp, err := svc.ProcessChat(context.Background(), service.ChatRequest{Messages: messages})
	if err != nil {
		t.Fatalf("ProcessChat() unexpected error: %v", err)
	}
	if resp.Reply != "hello!" {
		t.Errorf("Reply = %q, want %q despite storage failure", resp.Reply, "hello!")
	}
	if resp.ID != "" {
		t.Errorf("ID = %q, want empty when the exchange was not recorded", resp.ID)
	}
}
