package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ConversationStore defines the interface for conversation storage
// operations. It is defined here and consumed by the service layer.
type ConversationStore interface {
	// Insert stores a new conversation record, generating an id if empty.
	Insert(ctx context.Context, conv *ConversationRecord) error
	// GetByID fetches a conversation by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*ConversationRecord, error)
	// List returns the most recent conversations, newest first.
	List(ctx context.Context, limit int) ([]*ConversationRecord, error)
}

// ConversationRepo provides methods for conversation operations.
// It implements the ConversationStore interface.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new ConversationRepo.
func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Insert stores a new conversation record. A missing ID is filled with a
// fresh UUID before insert.
func (r *ConversationRepo) Insert(ctx context.Context, conv *ConversationRecord) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, model, messages_json, reply, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		conv.ID, conv.Model, conv.MessagesJSON, conv.Reply,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// GetByID fetches a conversation by id. Returns ErrNotFound if absent.
func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*ConversationRecord, error) {
	var conv ConversationRecord
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, model, messages_json, reply, created_at FROM conversations WHERE id = ?",
		id,
	).Scan(&conv.ID, &conv.Model, &conv.MessagesJSON, &conv.Reply, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	conv.CreatedAt, err = parseSQLiteTime(createdAtStr)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// List returns up to limit conversations, newest first.
func (r *ConversationRepo) List(ctx context.Context, limit int) ([]*ConversationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, model, messages_json, reply, created_at FROM conversations ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var convs []*ConversationRecord
	for rows.Next() {
		var conv ConversationRecord
		var createdAtStr string
		if err := rows.Scan(&conv.ID, &conv.Model, &conv.MessagesJSON, &conv.Reply, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv.CreatedAt, err = parseSQLiteTime(createdAtStr)
		if err != nil {
			return nil, err
		}
		convs = append(convs, &conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return convs, nil
}

// parseSQLiteTime handles both DATETIME layouts SQLite may hand back.
func parseSQLiteTime(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}
