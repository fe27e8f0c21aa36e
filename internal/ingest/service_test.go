package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelworks/doclabel/constants"
	"github.com/labelworks/doclabel/internal/common"
	"github.com/labelworks/doclabel/internal/docintel"
	"github.com/labelworks/doclabel/internal/entity"
)

type fakeBlobStore struct {
	mu        sync.Mutex
	puts      int
	existsAt  int // Exists returns true from this call count on; 0 = always
	existsN   int
	putErr    error
	lastName  string
	lastBytes []byte
}

func (f *fakeBlobStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts++
	f.lastName = name
	f.lastBytes = data
	return "https://blobs.example.com/files/" + name, nil
}

func (f *fakeBlobStore) Exists(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsN++
	return f.existsAt == 0 || f.existsN >= f.existsAt, nil
}

type fakeAnalyzer struct {
	res   *docintel.AnalyzeResult
	err   error
	calls int
}

func (f *fakeAnalyzer) Analyze(context.Context, string, []docintel.Feature) (*docintel.AnalyzeResult, error) {
	f.calls++
	return f.res, f.err
}

type memDocs struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*entity.DocumentRecord
	saves int
	err   error
}

func newMemDocs() *memDocs {
	return &memDocs{byID: map[uuid.UUID]*entity.DocumentRecord{}}
}

func (m *memDocs) Save(_ context.Context, rec *entity.DocumentRecord) (*entity.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := *rec
	if out.ID == uuid.Nil {
		out.ID = uuid.New()
	}
	out.Version++
	m.byID[out.ID] = &out
	m.saves++
	return &out, nil
}

func (m *memDocs) FindByID(_ context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, common.NotFound("document " + id.String() + " not found")
	}
	cp := *rec
	return &cp, nil
}

func (m *memDocs) FindAll(context.Context) ([]*entity.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.DocumentRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func scenarioResult() *docintel.AnalyzeResult {
	return &docintel.AnalyzeResult{
		Pages: []docintel.RawPage{{
			PageNumber: 1,
			Width:      8.5,
			Height:     11,
			Unit:       "inch",
			Words: []docintel.RawWord{{
				Content:    "Invoice",
				Polygon:    []float64{1, 1, 2, 1, 2, 2, 1, 2},
				Confidence: 0.98,
				Span:       &docintel.RawSpan{Offset: 0, Length: 7},
			}},
		}},
		KeyValuePairs: []docintel.RawKeyValuePair{{
			Key:        &docintel.RawElement{Content: "Date"},
			Value:      &docintel.RawElement{Content: "2024-01-01"},
			Confidence: 0.91,
		}},
	}
}

func testConfig() Config {
	return Config{WaitRetries: 3, WaitInterval: time.Millisecond}
}

func TestIngestHappyPath(t *testing.T) {
	blobs := &fakeBlobStore{}
	analyzer := &fakeAnalyzer{res: scenarioResult()}
	docs := newMemDocs()
	svc := NewService(blobs, analyzer, docs, testConfig(), nil)

	rec, err := svc.Ingest(context.Background(), []byte("%PDF-1.7"), "invoice.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "invoice.pdf", rec.FileName)
	assert.Equal(t, constants.StatusInReview, rec.Status)
	assert.WithinDuration(t, time.Now().UTC(), rec.UploadedAt, time.Minute)

	require.Len(t, rec.Pages, 1)
	require.Len(t, rec.Pages[0].Words, 1)
	assert.Equal(t, "Invoice", rec.Pages[0].Words[0].Content)
	assert.Equal(t, 0.98, rec.Pages[0].Words[0].Confidence)
	require.NotNil(t, rec.Pages[0].Words[0].Span)
	assert.Equal(t, entity.Span{Offset: 0, Length: 7}, *rec.Pages[0].Words[0].Span)

	require.Len(t, rec.KeyValuePairs, 1)
	require.NotNil(t, rec.KeyValuePairs[0].Value)
	assert.Equal(t, "2024-01-01", rec.KeyValuePairs[0].Value.Content)
	assert.Equal(t, 0.91, rec.KeyValuePairs[0].Confidence)

	assert.Equal(t, []entity.Table{}, rec.Tables)

	// Blob name is collision-resistant but keeps the original file name.
	assert.Contains(t, blobs.lastName, "_invoice.pdf")
	assert.Equal(t, rec.StorageURL, "https://blobs.example.com/files/"+blobs.lastName)

	stored, err := docs.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Snapshot, stored.Snapshot)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc := NewService(blobs, &fakeAnalyzer{}, newMemDocs(), testConfig(), nil)

	_, err := svc.Ingest(context.Background(), nil, "invoice.pdf")

	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, blobs.puts)
}

func TestIngestRejectsDisallowedExtension(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc := NewService(blobs, &fakeAnalyzer{}, newMemDocs(), testConfig(), nil)

	_, err := svc.Ingest(context.Background(), []byte("MZ"), "tool.exe")

	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Zero(t, blobs.puts)
}

func TestIngestProceedsWhenBlobNeverVisible(t *testing.T) {
	// Default policy mirrors the eventual-consistency workaround: exhaust
	// the budget, log, and let the analysis call decide.
	blobs := &fakeBlobStore{existsAt: 100}
	analyzer := &fakeAnalyzer{res: &docintel.AnalyzeResult{}}
	svc := NewService(blobs, analyzer, newMemDocs(), testConfig(), nil)

	rec, err := svc.Ingest(context.Background(), []byte("x"), "scan.png")
	require.NoError(t, err)

	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, constants.StatusInReview, rec.Status)
}

func TestIngestFailsOnUnavailableBlobWhenConfigured(t *testing.T) {
	blobs := &fakeBlobStore{existsAt: 100}
	analyzer := &fakeAnalyzer{res: &docintel.AnalyzeResult{}}
	cfg := testConfig()
	cfg.WaitFail = true
	svc := NewService(blobs, analyzer, newMemDocs(), cfg, nil)

	_, err := svc.Ingest(context.Background(), []byte("x"), "scan.png")

	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Zero(t, analyzer.calls)
}

func TestIngestWaitStopsWhenBlobAppears(t *testing.T) {
	blobs := &fakeBlobStore{existsAt: 2}
	analyzer := &fakeAnalyzer{res: &docintel.AnalyzeResult{}}
	svc := NewService(blobs, analyzer, newMemDocs(), testConfig(), nil)

	_, err := svc.Ingest(context.Background(), []byte("x"), "scan.png")
	require.NoError(t, err)

	assert.Equal(t, 2, blobs.existsN)
}

func TestIngestSurfacesAnalyzerFailure(t *testing.T) {
	blobs := &fakeBlobStore{}
	analyzer := &fakeAnalyzer{err: errors.New("analysis timed out")}
	docs := newMemDocs()
	svc := NewService(blobs, analyzer, docs, testConfig(), nil)

	_, err := svc.Ingest(context.Background(), []byte("x"), "scan.png")

	assert.ErrorIs(t, err, common.ErrUpstream)
	assert.Zero(t, docs.saves)
}

func TestIngestSurfacesStoreFailure(t *testing.T) {
	docs := newMemDocs()
	docs.err = errors.New("connection refused")
	svc := NewService(&fakeBlobStore{}, &fakeAnalyzer{res: &docintel.AnalyzeResult{}}, docs, testConfig(), nil)

	_, err := svc.Ingest(context.Background(), []byte("x"), "scan.png")

	assert.ErrorIs(t, err, common.ErrStore)
}

func TestIngestWaitIsCancellable(t *testing.T) {
	blobs := &fakeBlobStore{existsAt: 100}
	cfg := Config{WaitRetries: 1000, WaitInterval: 10 * time.Millisecond}
	svc := NewService(blobs, &fakeAnalyzer{}, newMemDocs(), cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ingest(ctx, []byte("x"), "scan.png")
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ingest did not honor context cancellation")
	}
}
