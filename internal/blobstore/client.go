// Package blobstore is the blob collaborator for uploaded documents.
package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Store is the contract the ingestion pipeline depends on. Put returns the
// blob's stable URL (without credentials); Exists reports read-availability.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, name string) (bool, error)
}

type Config struct {
	// Endpoint is the storage account base URL, e.g. https://acct.blob.core.windows.net
	Endpoint  string
	Container string
	// SASToken is the query string granting read/write on the container,
	// without the leading '?'.
	SASToken string
}

// Client implements Store against a block-blob REST endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// URL returns the blob's stable URL, without the SAS token.
func (c *Client) URL(name string) string {
	return fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		c.cfg.Container,
		url.PathEscape(name),
	)
}

func (c *Client) signedURL(name string) string {
	u := c.URL(name)
	if c.cfg.SASToken != "" {
		u += "?" + c.cfg.SASToken
	}
	return u
}

// Put uploads data as a block blob, overwriting any existing blob with the
// same name.
func (c *Client) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.signedURL(name), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build blob put request: %w", err)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob put: %w", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("blob put returned status %d", resp.StatusCode)
	}

	c.logger.Info("blob.put.ok",
		"name", name,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return c.URL(name), nil
}

// Exists reports whether the blob is visible for reads yet. The store may be
// eventually consistent, so a false here can flip to true shortly after a Put.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.signedURL(name), nil)
	if err != nil {
		return false, fmt.Errorf("build blob head request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("blob head: %w", err)
	}
	defer drainClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("blob head returned status %d", resp.StatusCode)
	}
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
