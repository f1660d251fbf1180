package dataset

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatrelay/internal/storage"
)

const sampleCSV = `Display Name,Email,External Id
Jordan Lee,jordan@example.com,ext-1
Sam Reyes,sam@example.com,ext-2
,orphan@example.com,ext-3
Ada Park,ada@example.com,ext-4
`

func TestConverter_ConvertRecords(t *testing.T) {
	var out strings.Builder
	conv := NewConverter(FormatRecords)

	stats, err := conv.Convert(context.Background(), strings.NewReader(sampleCSV), &out)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if stats.RowsRead != 4 {
		t.Errorf("RowsRead = %d, want 4", stats.RowsRead)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", stats.Skipped)
	}

	var records []Record
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("output line is not valid JSON: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 3 {
		t.Fatalf("output has %d lines, want 3", len(records))
	}
	if records[0].DisplayName != "Jordan Lee" || records[0].Email != "jordan@example.com" || records[0].ExternalID != "ext-1" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[2].DisplayName != "Ada Park" {
		t.Errorf("row order not preserved: last record = %+v", records[2])
	}
}

func TestConverter_ConvertChatFormat(t *testing.T) {
	var out strings.Builder
	conv := NewConverter(FormatChat)

	csv := "Display Name,Email,External Id\nJordan Lee,jordan@example.com,ext-1\n"
	if _, err := conv.Convert(context.Background(), strings.NewReader(csv), &out); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	var example ChatExample
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &example); err != nil {
		t.Fatalf("output is not a valid chat example: %v", err)
	}
	if len(example.Messages) != 3 {
		t.Fatalf("chat example has %d messages, want 3", len(example.Messages))
	}
	if example.Messages[0].Role != "system" || example.Messages[1].Role != "user" || example.Messages[2].Role != "assistant" {
		t.Errorf("unexpected roles: %+v", example.Messages)
	}
	if !strings.Contains(example.Messages[1].Content, "Jordan Lee") {
		t.Errorf("user turn does not mention the display name: %q", example.Messages[1].Content)
	}
	if !strings.Contains(example.Messages[2].Content, "jordan@example.com") {
		t.Errorf("assistant turn does not mention the email: %q", example.Messages[2].Content)
	}
}

func TestConverter_HeaderByNameNotPosition(t *testing.T) {
	// Columns in a different order must still map correctly.
	csv := "External Id,Display Name,Email\next-9,Jordan Lee,jordan@example.com\n"
	var out strings.Builder

	conv := NewConverter(FormatRecords)
	if _, err := conv.Convert(context.Background(), strings.NewReader(csv), &out); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &rec); err != nil {
		t.Fatalf("output line is not valid JSON: %v", err)
	}
	if rec.ExternalID != "ext-9" || rec.DisplayName != "Jordan Lee" {
		t.Errorf("columns mapped by position, not name: %+v", rec)
	}
}

func TestConverter_MissingColumn(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "no external id", csv: "Display Name,Email\nJordan Lee,jordan@example.com\n"},
		{name: "empty input", csv: ""},
		{name: "unrelated header", csv: "a,b,c\n1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConverter(FormatRecords)
			var out strings.Builder
			_, err := conv.Convert(context.Background(), strings.NewReader(tt.csv), &out)
			if !errors.Is(err, ErrMissingColumn) {
				t.Errorf("Convert() error = %v, want ErrMissingColumn", err)
			}
		})
	}
}

func TestConverter_PersistsThroughStore(t *testing.T) {
	db := newTestDB(t)
	repo := storage.NewUserRepo(db)

	conv := NewConverter(FormatRecords)
	conv.Store = repo

	var out strings.Builder
	if _, err := conv.Convert(context.Background(), strings.NewReader(sampleCSV), &out); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("stored %d mapping rows, want 3", count)
	}

	user, err := repo.GetByDisplayName(context.Background(), "Sam Reyes")
	if err != nil {
		t.Fatalf("GetByDisplayName() error = %v", err)
	}
	if user.ExternalID != "ext-2" {
		t.Errorf("ExternalID = %q, want ext-2", user.ExternalID)
	}
}

func TestConverter_ConvertFile(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "user.csv")
	outPath := filepath.Join(dir, "dataset.jsonl")
	if err := os.WriteFile(inPath, []byte(sampleCSV), 0644); err != nil {
		t.Fatalf("failed to write input file: %v", err)
	}

	conv := NewConverter(FormatRecords)
	stats, err := conv.ConvertFile(context.Background(), inPath, outPath)
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Errorf("output file has %d lines, want 3", len(lines))
	}
}

func TestConverter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conv := NewConverter(FormatRecords)
	var out strings.Builder
	_, err := conv.Convert(ctx, strings.NewReader(sampleCSV), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
}

// newTestDB opens a migrated SQLite database in a temp dir.
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
