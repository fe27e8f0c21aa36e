package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labelworks/doclabel/internal/common"
)

// Feature toggles an analysis capability on the provider side.
type Feature string

const (
	FeatureKeyValuePairs Feature = "keyValuePairs"
)

// Analyzer is the provider collaborator the ingestion pipeline depends on.
// Analyze blocks until the analysis operation completes or ctx is done.
type Analyzer interface {
	Analyze(ctx context.Context, url string, features []Feature) (*AnalyzeResult, error)
}

type Config struct {
	Endpoint     string
	APIKey       string
	ModelID      string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Client talks to the provider's REST analyze API: submit returns an
// operation URL, which is polled until the operation leaves the running
// states.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ModelID == "" {
		cfg.ModelID = "prebuilt-layout"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

const apiVersion = "2024-11-30"

// Analyze submits url for analysis and polls to completion. The overall
// wait is bounded by cfg.Timeout and by ctx.
func (c *Client) Analyze(ctx context.Context, url string, features []Feature) (*AnalyzeResult, error) {
	reqID := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.logger.Info("docintel.analyze.start",
		"req_id", reqID,
		"model", c.cfg.ModelID,
		"features", len(features),
	)

	opURL, err := c.submit(ctx, url, features)
	if err != nil {
		c.logger.Error("docintel.analyze.submit_error", "req_id", reqID, "error", err)
		return nil, err
	}

	res, err := c.poll(ctx, reqID, opURL)
	if err != nil {
		c.logger.Error("docintel.analyze.poll_error",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	c.logger.Info("docintel.analyze.ok",
		"req_id", reqID,
		"pages", len(res.Pages),
		"key_value_pairs", len(res.KeyValuePairs),
		"tables", len(res.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// submit starts the analysis operation and returns the operation URL from
// the Operation-Location header.
func (c *Client) submit(ctx context.Context, url string, features []Feature) (string, error) {
	endpoint := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.ModelID, apiVersion)
	if len(features) > 0 {
		names := make([]string, 0, len(features))
		for _, f := range features {
			names = append(names, string(f))
		}
		endpoint += "&features=" + strings.Join(names, ",")
	}

	body, err := json.Marshal(map[string]string{"urlSource": url})
	if err != nil {
		return "", fmt.Errorf("encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", common.Upstream("analysis submit failed", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", common.Upstream(fmt.Sprintf("analysis submit returned status %d: %s", resp.StatusCode, raw), nil)
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", common.Upstream("analysis submit returned no operation location", nil)
	}
	return opURL, nil
}

// operationEnvelope is the poll response: a status plus, once succeeded,
// the result tree.
type operationEnvelope struct {
	Status        string         `json:"status"`
	AnalyzeResult *AnalyzeResult `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) poll(ctx context.Context, reqID, opURL string) (*AnalyzeResult, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		env, err := c.fetchOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}

		switch env.Status {
		case "succeeded":
			if env.AnalyzeResult == nil {
				return nil, common.Upstream("analysis succeeded with no result", nil)
			}
			return env.AnalyzeResult, nil
		case "failed":
			msg := "analysis operation failed"
			if env.Error != nil {
				msg = fmt.Sprintf("analysis operation failed: %s: %s", env.Error.Code, env.Error.Message)
			}
			return nil, common.Upstream(msg, nil)
		default:
			c.logger.Debug("docintel.analyze.poll", "req_id", reqID, "status", env.Status)
		}

		select {
		case <-ctx.Done():
			return nil, common.Upstream("analysis wait aborted", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchOperation(ctx context.Context, opURL string) (*operationEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, common.Upstream("analysis poll failed", err)
	}
	defer drainClose(resp.Body)

	if resp.StatusCode/100 != 2 {
		return nil, common.Upstream(fmt.Sprintf("analysis poll returned status %d", resp.StatusCode), nil)
	}

	var env operationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, common.Upstream("decode analysis operation", err)
	}
	return &env, nil
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
