package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/entity"
)

// OpenSQLite opens the embedded backend. sqlite allows a single writer, so
// the pool is capped at one connection; this also keeps ":memory:" databases
// coherent across statements.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

type sqliteDocumentRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteDocumentRepository(db *sql.DB, logger *slog.Logger) *sqliteDocumentRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteDocumentRepo{db: db, logger: logger}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT PRIMARY KEY,
    file_name   TEXT NOT NULL,
    storage_url TEXT NOT NULL,
    uploaded_at TEXT NOT NULL,
    status      TEXT NOT NULL,
    version     INTEGER NOT NULL,
    snapshot    TEXT NOT NULL
)`

func (r *sqliteDocumentRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		r.logger.Error("failed to ensure documents schema", "error", err)
		return common.Store("ensure schema", err)
	}
	return nil
}

func (r *sqliteDocumentRepo) Save(ctx context.Context, rec *entity.DocumentRecord) (*entity.DocumentRecord, error) {
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Version++

	snapshot, err := json.Marshal(out.Snapshot)
	if err != nil {
		return nil, common.Store("encode snapshot", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_name, storage_url, uploaded_at, status, version, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			file_name = excluded.file_name,
			storage_url = excluded.storage_url,
			uploaded_at = excluded.uploaded_at,
			status = excluded.status,
			version = excluded.version,
			snapshot = excluded.snapshot`,
		out.ID.String(), out.FileName, out.StorageURL,
		out.UploadedAt.UTC().Format(time.RFC3339Nano),
		string(out.Status), out.Version, string(snapshot),
	)
	if err != nil {
		r.logger.Error("failed to save document", "id", out.ID, "error", err)
		return nil, common.Store("save document", err)
	}
	return &out, nil
}

func (r *sqliteDocumentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, file_name, storage_url, uploaded_at, status, version, snapshot
		FROM documents WHERE id = ?`, id.String())

	rec, err := scanDocument(func(dest ...any) error { return row.Scan(dest...) })
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFound("document " + id.String() + " not found")
		}
		r.logger.Error("failed to load document", "id", id, "error", err)
		return nil, common.Store("load document", err)
	}
	return rec, nil
}

func (r *sqliteDocumentRepo) FindAll(ctx context.Context) ([]*entity.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
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
