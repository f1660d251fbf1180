package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"chatrelay/internal/llm"
	"chatrelay/internal/storage"
)

// Column headers expected in the user mapping CSV.
const (
	colDisplayName = "Display Name"
	colEmail       = "Email"
	colExternalID  = "External Id"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required CSV column")

// Format selects the shape of the emitted JSONL entries.
type Format string

const (
	// FormatRecords emits one identity record per row.
	FormatRecords Format = "records"
	// FormatChat wraps each row into a chat-format training example using
	// the same message schema the chat client sends.
	FormatChat Format = "chat"
)

// Record is one row of the user mapping.
type Record struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	ExternalID  string `json:"external_id"`
}

// ChatExample is a chat-format dataset entry built from a Record.
type ChatExample struct {
	Messages []llm.Message `json:"messages"`
}

// Stats summarizes one conversion run.
type Stats struct {
	// RowsRead is the number of data rows read from the CSV.
	RowsRead int `json:"rows_read"`
	// Entries is the number of JSONL entries written.
	Entries int `json:"entries"`
	// Skipped is the number of rows dropped (blank display name).
	Skipped int `json:"skipped"`
}

// Converter streams a CSV user mapping into a JSONL dataset file.
// The zero value emits identity records and persists nothing.
type Converter struct {
	// Format selects the entry shape; empty means FormatRecords.
	Format Format
	// Store, when set, receives an upsert for every converted row.
	Store storage.UserStore
	// OnRow, when set, is called after each row is processed. Used by the
	// CLI to drive a progress bar.
	OnRow func(Record)

	logger *slog.Logger
}

// NewConverter creates a converter for the given format.
func NewConverter(format Format) *Converter {
	return &Converter{
		Format: format,
		logger: slog.Default(),
	}
}

func (c *Converter) getLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// Convert reads a CSV user mapping from r and writes one JSON entry per
// row to w. Rows with a blank display name are skipped and counted. The
// header row is matched by column name, not position.
func (c *Converter) Convert(ctx context.Context, r io.Reader, w io.Writer) (*Stats, error) {
	logger := c.getLogger()

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty CSV input: %w", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := columnIndexes(header)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	stats := &Stats{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", stats.RowsRead+2, err)
		}
		stats.RowsRead++

		rec := Record{
			DisplayName: row[cols[colDisplayName]],
			Email:       row[cols[colEmail]],
			ExternalID:  row[cols[colExternalID]],
		}
		if rec.DisplayName == "" {
			stats.Skipped++
			logger.DebugContext(ctx, "skipping row with blank display name", "row", stats.RowsRead+1)
			continue
		}

		if err := c.writeEntry(encoder, rec); err != nil {
			return nil, fmt.Errorf("failed to write entry for %q: %w", rec.DisplayName, err)
		}
		stats.Entries++

		if c.Store != nil {
			user := &storage.UserRecord{
				DisplayName: rec.DisplayName,
				Email:       rec.Email,
				ExternalID:  rec.ExternalID,
			}
			if err := c.Store.Upsert(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to store mapping for %q: %w", rec.DisplayName, err)
			}
		}

		if c.OnRow != nil {
			c.OnRow(rec)
		}
	}

	logger.InfoContext(ctx, "conversion complete",
		"rows_read", stats.RowsRead, "entries", stats.Entries, "skipped", stats.Skipped)
	return stats, nil
}

// ConvertFile converts inPath (CSV) into outPath (JSONL).
func (c *Converter) ConvertFile(ctx context.Context, inPath, outPath string) (*Stats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}

	stats, err := c.Convert(ctx, in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		return nil, fmt.Errorf("failed to close output: %w", cerr)
	}
	return stats, err
}

func (c *Converter) writeEntry(encoder *json.Encoder, rec Record) error {
	if c.Format == FormatChat {
		return encoder.Encode(chatExample(rec))
	}
	return encoder.Encode(rec)
}

// chatExample phrases one mapping row as a directory question and answer.
func chatExample(rec Record) ChatExample {
	return ChatExample{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are an assistant that answers questions about the user directory."},
			{Role: llm.RoleUser, Content: fmt.Sprintf("Who is %s?", rec.DisplayName)},
			{Role: llm.RoleAssistant, Content: fmt.Sprintf("%s can be reached at %s (external id %s).", rec.DisplayName, rec.Email, rec.ExternalID)},
		},
	}
}

// columnIndexes maps required column names to their positions in the
// header, erroring on any missing column.
func columnIndexes(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{colDisplayName, colEmail, colExternalID} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}
	return cols, nil
}
