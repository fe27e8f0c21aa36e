// Package ingest coordinates upload → analysis → mapping → initial
// persistence. It is the only component that touches the blob store and the
// analysis provider directly.
package ingest

import (
	"context"
	"mime"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/labelworks/doclabel/constants"
	"github.com/labelworks/doclabel/internal/blobstore"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/docintel"
	"github.com/labelworks/doclabel/internal/entity"
	"github.com/labelworks/doclabel/internal/mapping"
	"github.com/labelworks/doclabel/internal/repository"
)

// Config is the blob-availability wait policy.
type Config struct {
	WaitRetries  int
	WaitInterval time.Duration
	// WaitFail fails the ingest when the wait budget is spent instead of
	// proceeding best-effort.
	WaitFail bool
}

// Service handles document ingestion.
type Service struct {
	blobs    blobstore.Store
	analyzer docintel.Analyzer
	docs     repository.DocumentRepository
	cfg      Config
	logger   *slog.Logger
}

func NewService(blobs blobstore.Store, analyzer docintel.Analyzer, docs repository.DocumentRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WaitRetries <= 0 {
		cfg.WaitRetries = 10
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = 500 * time.Millisecond
	}
	return &Service{
		blobs:    blobs,
		analyzer: analyzer,
		docs:     docs,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ingest stores the uploaded bytes, analyzes them, maps the raw result and
// persists the initial record in IN_REVIEW.
func (s *Service) Ingest(ctx context.Context, data []byte, fileName string) (*entity.DocumentRecord, error) {
	start := time.Now()

	if len(data) == 0 {
		return nil, common.Validation("uploaded file is empty")
	}
	ext := constants.NormalizeExt(filepath.Ext(fileName))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return nil, common.Validationf("unsupported file extension %q", ext)
	}

	blobName := uuid.New().String() + "_" + fileName
	url, err := s.blobs.Put(ctx, blobName, data, contentTypeFor(ext))
	if err != nil {
		return nil, common.Upstream("blob upload failed", err)
	}
	s.logger.Info("ingest.blob.uploaded", "name", blobName, "bytes", len(data))

	if err := s.waitForBlob(ctx, blobName); err != nil {
		return nil, err
	}

	res, err := s.analyzer.Analyze(ctx, url, []docintel.Feature{docintel.FeatureKeyValuePairs})
	if err != nil {
		return nil, common.Upstream("document analysis failed", err)
	}

	rec := &entity.DocumentRecord{
		ID:         uuid.New(),
		FileName:   fileName,
		StorageURL: url,
		UploadedAt: time.Now().UTC(),
		Status:     constants.StatusInReview,
		Snapshot:   mapping.Map(res),
	}

	saved, err := s.docs.Save(ctx, rec)
	if err != nil {
		return nil, common.Store("persist document failed", err)
	}

	s.logger.Info("ingest.ok",
		"id", saved.ID.String(),
		"file_name", fileName,
		"pages", len(saved.Pages),
		"key_value_pairs", len(saved.KeyValuePairs),
		"tables", len(saved.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return saved, nil
}

// waitForBlob polls Exists until the blob is visible or the retry budget is
// spent. The blob store and the analysis provider may be eventually
// consistent across regions, so a blob can be unreadable right after Put.
// Spending the budget is only fatal when the policy says so.
func (s *Service) waitForBlob(ctx context.Context, name string) error {
	ticker := time.NewTicker(s.cfg.WaitInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.cfg.WaitRetries; attempt++ {
		ok, err := s.blobs.Exists(ctx, name)
		if err != nil {
			s.logger.Warn("ingest.blob.exists_check_failed", "name", name, "attempt", attempt, "error", err)
		} else if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return common.Upstream("blob availability wait aborted", ctx.Err())
		case <-ticker.C:
		}
	}

	if s.cfg.WaitFail {
		return common.Upstream("blob not visible after availability wait", nil)
	}
	s.logger.Warn("ingest.blob.unavailable_proceeding", "name", name, "retries", s.cfg.WaitRetries)
	return nil
}

func contentTypeFor(ext string) string {
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
