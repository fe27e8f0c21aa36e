package docintel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelworks/doclabel/internal/common"
)

func testClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:     endpoint,
		APIKey:       "test-key",
		ModelID:      "prebuilt-layout",
		PollInterval: time.Millisecond,
		Timeout:      2 * time.Second,
	}, nil)
}

func TestAnalyzeSubmitsAndPollsToCompletion(t *testing.T) {
	var polls atomic.Int32
	var gotFeatures, gotKey, gotSource string

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		gotFeatures = r.URL.Query().Get("features")
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotSource = body["urlSource"]
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "running"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "succeeded",
			"analyzeResult": map[string]any{
				"pages": []map[string]any{{"pageNumber": 1, "unit": "inch"}},
			},
		})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL)

	res, err := c.Analyze(context.Background(), "https://blobs.example.com/files/doc.pdf",
		[]Feature{FeatureKeyValuePairs})
	require.NoError(t, err)

	assert.Equal(t, "keyValuePairs", gotFeatures)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "https://blobs.example.com/files/doc.pdf", gotSource)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
	require.Len(t, res.Pages, 1)
	assert.Equal(t, 1, res.Pages[0].PageNumber)
}

func TestAnalyzeFailedOperationIsUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  map[string]string{"code": "InvalidContent", "message": "unreadable document"},
		})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL)

	_, err := c.Analyze(context.Background(), "https://blobs.example.com/files/doc.pdf", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Contains(t, err.Error(), "InvalidContent")
}

func TestAnalyzeSubmitRejectionIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	_, err := c.Analyze(context.Background(), "https://blobs.example.com/files/doc.pdf", nil)
	assert.ErrorIs(t, err, common.ErrUpstream)
}

func TestAnalyzeHonorsContextWhileRunning(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("POST /documentintelligence/documentModels/prebuilt-layout:analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "running"})
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{
		Endpoint:     srv.URL,
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
		Timeout:      time.Minute,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, "https://blobs.example.com/files/doc.pdf", nil)
	assert.Error(t, err)
}
