package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/labelworks/doclabel/constants"
)

// DocumentRecord is the persisted unit: upload metadata, review status and
// the embedded annotation snapshot. Created once at ingestion; only the
// review workflow mutates it afterwards. Version counts saves so clients
// can detect lost updates under concurrent editing.
type DocumentRecord struct {
	ID         uuid.UUID                `json:"id"`
	FileName   string                   `json:"fileName"`
	StorageURL string                   `json:"storageUrl"`
	UploadedAt time.Time                `json:"uploadedAt"`
	Status     constants.DocumentStatus `json:"status"`
	Version    int64                    `json:"version"`
	Snapshot
}

// Summary is the projection returned by the listing endpoint.
type Summary struct {
	ID         uuid.UUID                `json:"id"`
	FileName   string                   `json:"fileName"`
	Status     constants.DocumentStatus `json:"status"`
	UploadedAt time.Time                `json:"uploadedAt"`
}

// Summarize projects the record down to its listing fields.
func (r *DocumentRecord) Summarize() Summary {
	return Summary{
		ID:         r.ID,
		FileName:   r.FileName,
		Status:     r.Status,
		UploadedAt: r.UploadedAt,
	}
}
