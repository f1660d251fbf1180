package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_dataset_service.go -package=mocks -mock_names=DatasetService=MockDatasetService chatrelay/internal/service DatasetService

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chatrelay/internal/contextutil"
	"chatrelay/internal/dataset"
	"chatrelay/internal/storage"
)

// DatasetService converts CSV user mappings into JSONL datasets.
type DatasetService interface {
	// Convert streams a CSV mapping from r to JSONL entries on w.
	Convert(ctx context.Context, r io.Reader, w io.Writer, format dataset.Format) (*dataset.Stats, error)
}

// datasetService implements DatasetService.
type datasetService struct {
	users storage.UserStore
}

// NewDatasetService creates a new DatasetService. users may be nil, in
// which case converted rows are not persisted.
func NewDatasetService(users storage.UserStore) DatasetService {
	return &datasetService{users: users}
}

// Convert runs one conversion. A malformed header is reported as a
// validation failure so handlers can map it to a client error.
func (s *datasetService) Convert(ctx context.Context, r io.Reader, w io.Writer, format dataset.Format) (*dataset.Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)

	conv := dataset.NewConverter(format)
	conv.Store = s.users

	stats, err := conv.Convert(ctx, r, w)
	if err != nil {
		logger.WarnContext(ctx, "dataset conversion failed", "error", err)
		if errors.Is(err, dataset.ErrMissingColumn) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, WrapError(err, "dataset conversion failed")
	}
	return stats, nil
}
