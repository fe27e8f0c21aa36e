// Package review is the state machine over stored documents: IN_REVIEW is
// entered at creation, APPROVED is terminal. Manual edits replace the
// targeted sequence wholesale through a load-mutate-store cycle.
package review

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/labelworks/doclabel/constants"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/entity"
	"github.com/labelworks/doclabel/internal/repository"
)

// Service applies review operations against the document store.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	return s.docs.FindByID(ctx, id)
}

// List projects all records down to their summary fields.
func (s *Service) List(ctx context.Context) ([]entity.Summary, error) {
	recs, err := s.docs.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Summary, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Summarize())
	}
	return out, nil
}

// UpdateKeyValuePairs replaces the stored key-value pair sequence wholesale.
// Edits carry no state guard: an APPROVED record stays editable.
func (s *Service) UpdateKeyValuePairs(ctx context.Context, id uuid.UUID, pairs []entity.KeyValuePair) (*entity.DocumentRecord, error) {
	rec, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pairs == nil {
		pairs = []entity.KeyValuePair{}
	}
	rec.KeyValuePairs = pairs

	saved, err := s.docs.Save(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.key_value_pairs.updated", "id", id.String(), "count", len(pairs))
	return saved, nil
}

// UpdateTables replaces the stored table sequence wholesale. Unlike provider
// output, a human-edited table with cell indices outside its declared counts
// is always a client bug, so those are rejected up front.
func (s *Service) UpdateTables(ctx context.Context, id uuid.UUID, tables []entity.Table) (*entity.DocumentRecord, error) {
	for ti, tbl := range tables {
		for ci, cell := range tbl.Cells {
			if cell.RowIndex < 0 || cell.RowIndex >= tbl.RowCount ||
				cell.ColumnIndex < 0 || cell.ColumnIndex >= tbl.ColumnCount {
				return nil, common.Validationf(
					"table %d cell %d: index (%d,%d) outside declared %dx%d",
					ti, ci, cell.RowIndex, cell.ColumnIndex, tbl.RowCount, tbl.ColumnCount,
				)
			}
		}
	}

	rec, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []entity.Table{}
	}
	rec.Tables = tables

	saved, err := s.docs.Save(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.tables.updated", "id", id.String(), "count", len(tables))
	return saved, nil
}

// Approve marks the record APPROVED. Approving an already-approved record is
// a no-op that re-persists the same status.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	rec, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Status = constants.StatusApproved

	saved, err := s.docs.Save(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("review.approve.ok", "id", id.String())
	return saved, nil
}
