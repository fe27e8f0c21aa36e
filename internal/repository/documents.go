package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labelworks/doclabel/constants"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/entity"
)

// DocumentRepository is the single-document-per-id store for labeled files.
// Save upserts atomically per record, assigns an id when the record carries
// none, and bumps the record's version counter.
type DocumentRepository interface {
	Save(ctx context.Context, rec *entity.DocumentRecord) (*entity.DocumentRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error)
	FindAll(ctx context.Context) ([]*entity.DocumentRecord, error)
}

type postgresDocumentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) *postgresDocumentRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresDocumentRepo{pool: pool, logger: logger}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id          UUID PRIMARY KEY,
    file_name   TEXT NOT NULL,
    storage_url TEXT NOT NULL,
    uploaded_at TIMESTAMPTZ NOT NULL,
    status      TEXT NOT NULL,
    version     BIGINT NOT NULL,
    snapshot    JSONB NOT NULL
)`

// EnsureSchema creates the documents table if it is missing.
func (r *postgresDocumentRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresSchema)
	if err != nil {
		r.logger.Error("failed to ensure documents schema", "error", err)
		return common.Store("ensure schema", err)
	}
	return nil
}

func (r *postgresDocumentRepo) Save(ctx context.Context, rec *entity.DocumentRecord) (*entity.DocumentRecord, error) {
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Version++

	snapshot, err := json.Marshal(out.Snapshot)
	if err != nil {
		return nil, common.Store("encode snapshot", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (id, file_name, storage_url, uploaded_at, status, version, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			storage_url = EXCLUDED.storage_url,
			uploaded_at = EXCLUDED.uploaded_at,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			snapshot = EXCLUDED.snapshot`,
		out.ID, out.FileName, out.StorageURL, out.UploadedAt.UTC(), string(out.Status), out.Version, snapshot,
	)
	if err != nil {
		r.logger.Error("failed to save document", "id", out.ID, "error", err)
		return nil, common.Store("save document", err)
	}
	return &out, nil
}

func (r *postgresDocumentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, file_name, storage_url, uploaded_at, status, version, snapshot
		FROM documents WHERE id = $1`, id)

	rec, err := scanDocument(func(dest ...any) error { return row.Scan(dest...) })
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NotFound("document " + id.String() + " not found")
		}
		r.logger.Error("failed to load document", "id", id, "error", err)
		return nil, common.Store("load document", err)
	}
	return rec, nil
}

func (r *postgresDocumentRepo) FindAll(ctx context.Context) ([]*entity.DocumentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, file_name, storage_url, uploaded_at, status, version, snapshot
		FROM documents ORDER BY uploaded_at DESC`)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, common.Store("list documents", err)
	}
	defer rows.Close()

	out := make([]*entity.DocumentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(func(dest ...any) error { return rows.Scan(dest...) })
		if err != nil {
			return nil, common.Store("scan document", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Store("list documents", err)
	}
	return out, nil
}

// scanDocument reads one row through a backend-neutral scan function. The
// postgres backend hands back time.Time and []byte directly; the sqlite
// backend stores both as text, so the helpers below accept either.
func scanDocument(scan func(dest ...any) error) (*entity.DocumentRecord, error) {
	var (
		rec        entity.DocumentRecord
		status     string
		uploadedAt any
		snapshot   []byte
	)
	if err := scan(&rec.ID, &rec.FileName, &rec.StorageURL, &uploadedAt, &status, &rec.Version, &snapshot); err != nil {
		return nil, err
	}
	ts, err := asTime(uploadedAt)
	if err != nil {
		return nil, err
	}
	rec.UploadedAt = ts
	rec.Status = constants.DocumentStatus(status)
	if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
		return nil, err
	}
	return &rec, nil
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	default:
		return time.Time{}, errors.New("unsupported uploaded_at column type")
	}
}
