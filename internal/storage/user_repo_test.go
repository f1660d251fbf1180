package storage

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepo_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	user := &UserRecord{
		DisplayName: "Jordan Lee",
		Email:       "jordan@example.com",
		ExternalID:  "ext-123",
	}
	if err := repo.Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByDisplayName(ctx, "Jordan Lee")
	if err != nil {
		t.Fatalf("GetByDisplayName() error = %v", err)
	}
	if got.Email != "jordan@example.com" {
		t.Errorf("Email = %q, want jordan@example.com", got.Email)
	}
	if got.ExternalID != "ext-123" {
		t.Errorf("ExternalID = %q, want ext-123", got.ExternalID)
	}

	// Same display name updates in place.
	user.Email = "jordan.lee@example.com"
	if err := repo.Upsert(ctx, user); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err = repo.GetByDisplayName(ctx, "Jordan Lee")
	if err != nil {
		t.Fatalf("GetByDisplayName() after update error = %v", err)
	}
	if got.Email != "jordan.lee@example.com" {
		t.Errorf("Email after update = %q, want jordan.lee@example.com", got.Email)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after upserting the same row twice", count)
	}
}

func TestUserRepo_GetByDisplayNameNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)

	_, err := repo.GetByDisplayName(context.Background(), "Nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByDisplayName() error = %v, want ErrNotFound", err)
	}
}
