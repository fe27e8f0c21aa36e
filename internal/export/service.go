// Package export produces XLSX workbooks from reviewed annotations so that
// approved labels can leave the system as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/labelworks/doclabel/internal/entity"
	"github.com/labelworks/doclabel/internal/repository"
)

// Service is a tiny façade over the document repository that produces XLSX
// bytes for a single record.
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

const pairsSheet = "Key-Value Pairs"

// ExportXLSX returns a workbook with one sheet of key-value pairs and one
// sheet per table, laid out by the cells' declared row/column indices.
func (s *Service) ExportXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	start := time.Now()

	rec, err := s.docs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	// The default sheet becomes the pairs sheet.
	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(defaultSheet, pairsSheet); err != nil {
		return nil, err
	}

	if err := writePairs(f, rec.KeyValuePairs); err != nil {
		return nil, err
	}
	for i, tbl := range rec.Tables {
		if err := writeTable(f, fmt.Sprintf("Table %d", i+1), tbl); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"id", id.String(),
		"key_value_pairs", len(rec.KeyValuePairs),
		"tables", len(rec.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writePairs(f *excelize.File, pairs []entity.KeyValuePair) error {
	headers := []string{"Key", "Value", "Confidence", "Page"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(pairsSheet, cell, h); err != nil {
			return err
		}
	}

	row := 2
	for _, p := range pairs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(pairsSheet, cell, v)
		}

		write(1, truncate(p.Key.Content, 140))
		if p.Value != nil {
			write(2, truncate(p.Value.Content, 140))
		} else {
			write(2, "")
		}
		write(3, p.Confidence)
		if len(p.Key.BoundingRegions) > 0 {
			write(4, p.Key.BoundingRegions[0].PageNumber)
		} else {
			write(4, "")
		}
		row++
	}

	_ = f.SetColWidth(pairsSheet, "A", "B", 36)
	_ = f.SetColWidth(pairsSheet, "C", "D", 12)
	return nil
}

// writeTable places each cell at its declared coordinates. Out-of-range
// indices from provider output land wherever they point; the sheet grows to
// fit, which beats silently dropping the content.
func writeTable(f *excelize.File, sheet string, tbl entity.Table) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for _, c := range tbl.Cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(c.ColumnIndex+1, c.RowIndex+1)
		if err != nil {
			continue
		}
		if err := f.SetCellValue(sheet, cell, c.Content); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
