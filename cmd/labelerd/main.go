// labelerd serves the document labeling API: upload and analysis, review
// edits, approval and export.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labelworks/doclabel/internal/blobstore"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/docintel"
	"github.com/labelworks/doclabel/internal/export"
	"github.com/labelworks/doclabel/internal/ingest"
	"github.com/labelworks/doclabel/internal/repository"
	"github.com/labelworks/doclabel/internal/review"
	"github.com/labelworks/doclabel/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, ping, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	blobs := blobstore.NewClient(blobstore.Config{
		Endpoint:  cfg.Blob.Endpoint,
		Container: cfg.Blob.Container,
		SASToken:  cfg.Blob.SASToken,
	}, logger)

	analyzer := docintel.NewClient(docintel.Config{
		Endpoint:     cfg.DocIntel.Endpoint,
		APIKey:       cfg.DocIntel.APIKey,
		ModelID:      cfg.DocIntel.ModelID,
		PollInterval: cfg.DocIntel.PollInterval,
		Timeout:      cfg.DocIntel.Timeout,
	}, logger)

	ingestSvc := ingest.NewService(blobs, analyzer, docs, ingest.Config{
		WaitRetries:  cfg.Ingest.BlobWaitRetries,
		WaitInterval: cfg.Ingest.BlobWaitInterval,
		WaitFail:     cfg.Ingest.BlobWaitFail,
	}, logger)
	reviewSvc := review.NewService(docs, logger)
	exportSvc := export.NewService(docs, logger)

	srv := server.New(ingestSvc, reviewSvc, exportSvc, ping, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

// openStore selects the backend from the DSN scheme: sqlite: for the
// embedded store, anything else is handed to pgx.
func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.DocumentRepository, func(context.Context) error, func(), error) {
	if strings.HasPrefix(cfg.Database.DSN, "sqlite:") {
		db, err := repository.OpenSQLite(strings.TrimPrefix(cfg.Database.DSN, "sqlite:"))
		if err != nil {
			return nil, nil, nil, err
		}
		repo := repository.NewSQLiteDocumentRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		logger.Info("document store ready", "backend", "sqlite")
		return repo, db.PingContext, func() { _ = db.Close() }, nil
	}

	pool, err := repository.OpenPool(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	repo := repository.NewPostgresDocumentRepository(pool, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	logger.Info("document store ready", "backend", "postgres")
	return repo, pool.Ping, func() { pool.Close() }, nil
}
