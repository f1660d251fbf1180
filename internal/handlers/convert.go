package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"chatrelay/internal/contextutil"
	"chatrelay/internal/dataset"
	"chatrelay/internal/service"
)

// ConvertHandler converts a CSV user mapping posted as the request body
// into a JSONL dataset streamed back as NDJSON.
type ConvertHandler struct {
	datasetService service.DatasetService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(datasetService service.DatasetService) *ConvertHandler {
	return &ConvertHandler{datasetService: datasetService}
}

// ServeHTTP handles HTTP requests for dataset conversion. The request body
// is CSV; `?format=chat` selects chat-format entries. Conversion stats are
// reported in X-Dataset-Rows / X-Dataset-Entries / X-Dataset-Skipped
// headers, which requires buffering the output before writing.
func (h *ConvertHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	format := dataset.FormatRecords
	switch r.URL.Query().Get("format") {
	case "", "records":
	case "chat":
		format = dataset.FormatChat
	default:
		writeError(w, http.StatusBadRequest, "Unknown format: must be records or chat")
		return
	}

	var out bytes.Buffer
	stats, err := h.datasetService.Convert(ctx, r.Body, &out, format)
	if err != nil {
		writeServiceError(w, r, err, "Failed to convert dataset")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("X-Dataset-Rows", strconv.Itoa(stats.RowsRead))
	w.Header().Set("X-Dataset-Entries", strconv.Itoa(stats.Entries))
	w.Header().Set("X-Dataset-Skipped", strconv.Itoa(stats.Skipped))
	if _, err := out.WriteTo(w); err != nil {
		logger.ErrorContext(ctx, "failed to write dataset response", "error", err)
	}
}
