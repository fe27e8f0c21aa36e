package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelworks/doclabel/constants"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/entity"
)

func newTestRepo(t *testing.T) *sqliteDocumentRepo {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLiteDocumentRepository(db, nil)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func sampleRecord() *entity.DocumentRecord {
	span := entity.Span{Offset: 0, Length: 7}
	return &entity.DocumentRecord{
		FileName:   "invoice.pdf",
		StorageURL: "https://blobs.example.com/files/invoice.pdf",
		UploadedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:     constants.StatusInReview,
		Snapshot: entity.Snapshot{
			Pages: []entity.Page{{
				PageNumber: 1,
				Width:      8.5,
				Height:     11,
				Unit:       entity.UnitInch,
				Words: []entity.Word{{
					Content:    "Invoice",
					Polygon:    []float64{1, 1, 2, 1, 2, 2, 1, 2},
					Confidence: 0.98,
					Span:       &span,
				}},
			}},
			KeyValuePairs: []entity.KeyValuePair{},
			Tables:        []entity.Table{},
		},
	}
}

func TestSaveAssignsIDAndVersion(t *testing.T) {
	repo := newTestRepo(t)

	saved, err := repo.Save(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, int64(1), saved.Version)
}

func TestSaveAndFindByIDRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, sampleRecord())
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "invoice.pdf", got.FileName)
	assert.Equal(t, constants.StatusInReview, got.Status)
	assert.True(t, got.UploadedAt.Equal(saved.UploadedAt))
	assert.Equal(t, saved.Snapshot, got.Snapshot)
}

func TestSaveBumpsVersionOnUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, sampleRecord())
	require.NoError(t, err)

	saved.Status = constants.StatusApproved
	again, err := repo.Save(ctx, saved)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, again.ID)
	assert.Equal(t, int64(2), again.Version)

	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusApproved, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestFindByIDUnknownReturnsNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindAllOrdersByUploadTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := sampleRecord()
	older.FileName = "older.pdf"
	older.UploadedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.Save(ctx, older)
	require.NoError(t, err)

	newer := sampleRecord()
	newer.FileName = "newer.pdf"
	newer.UploadedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.Save(ctx, newer)
	require.NoError(t, err)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "newer.pdf", all[0].FileName)
	assert.Equal(t, "older.pdf", all[1].FileName)
}
