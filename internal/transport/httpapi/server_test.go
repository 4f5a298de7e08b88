package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/infrastructure/storage"
	"PaperFeed/internal/ports"
	"PaperFeed/internal/usecase"
)

type stubEvaluator struct {
	recommend bool
}

func (s stubEvaluator) Score(context.Context, domain.Paper, string, string) (domain.Verdict, error) {
	return domain.Verdict{Recommended: s.recommend, Reason: "stub"}, nil
}

func (stubEvaluator) Translate(_ context.Context, title, abstract string) (domain.Translation, error) {
	return domain.Translation{Title: "T:" + title, Abstract: "T:" + abstract}, nil
}

func (stubEvaluator) RefineInterests(_ context.Context, raw string) (string, error) {
	return "refined " + raw, nil
}

func (stubEvaluator) SummarizeFavorites(_ context.Context, batch []domain.Paper, _ string) (string, error) {
	return fmt.Sprintf("%d favorites", len(batch)), nil
}

func (stubEvaluator) TestConnection(context.Context) bool { return true }

type stubSource struct {
	papers []domain.Paper
}

func (s stubSource) Fetch(context.Context, ports.Window) ([]domain.Paper, error) {
	return s.papers, nil
}

type alwaysConfigured struct{}

func (alwaysConfigured) Configured(context.Context) bool { return true }

type testEnv struct {
	store   *storage.Repository
	handler http.Handler
}

func newTestEnv(t *testing.T, source stubSource) *testEnv {
	t.Helper()

	store, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ev := stubEvaluator{recommend: true}

	evaluation := usecase.NewEvaluationScheduler(usecase.EvaluationDeps{
		Store:       store,
		Settings:    store,
		Evaluator:   ev,
		Credentials: alwaysConfigured{},
		Logger:      logger,
	}, usecase.EvaluationConfig{})
	ingestor := usecase.NewIngestor(source, store, store, evaluation, nil, time.UTC, logger)
	aggregator := usecase.NewAggregator(store, store, ev, logger)

	srv := New(":0", Services{
		Papers:        store,
		Selector:      usecase.NewSelector(store, store, ev, ingestor, 0, logger),
		Feedback:      usecase.NewFeedback(store, store, ev, aggregator, logger),
		Aggregator:    aggregator,
		Evaluation:    evaluation,
		Ingestor:      ingestor,
		Maintenance:   usecase.NewMaintenance(store, logger),
		Configuration: usecase.NewConfiguration(store, ev, []string{"openai", "anthropic", "gemini"}, logger),
		RetentionDays: 30,
	}, logger)

	return &testEnv{store: store, handler: srv.Handler()}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (e *testEnv) seed(t *testing.T, externalID string, published time.Time) domain.Paper {
	t.Helper()
	ctx := context.Background()
	_, err := e.store.UpsertIngested(ctx, domain.Paper{ExternalID: externalID, Title: "Title " + externalID, PublishedAt: published})
	require.NoError(t, err)
	papers, err := e.store.FetchUnevaluated(ctx, 100)
	require.NoError(t, err)
	for _, p := range papers {
		if p.ExternalID == externalID {
			return p
		}
	}
	t.Fatalf("paper %s not stored", externalID)
	return domain.Paper{}
}

func TestHealthzSetsRequestID(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	rec, resp := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestLLMSettingsNeverExposeKey(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	rec, _ := env.do(t, http.MethodPost, "/api/config/llm", map[string]string{
		"provider": "openai", "api_key": "sk-secret", "model": "gpt-4o-mini",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-secret")

	rec, resp := env.do(t, http.MethodGet, "/api/config/llm", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-secret")
	assert.Contains(t, string(resp.Data), `"has_api_key":true`)

	rec, _ = env.do(t, http.MethodPost, "/api/config/llm", map[string]string{"provider": "cohere", "model": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/config/llm/test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":true}`, string(resp.Data))
}

func TestRecommendationFlow(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	rec, resp := env.do(t, http.MethodGet, "/api/recommendation/next", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = env.do(t, http.MethodPost, "/api/config/interests", map[string]string{"interests": "agents"})
	require.Equal(t, http.StatusOK, rec.Code)

	paper := env.seed(t, "2501.00001", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	rec, resp = env.do(t, http.MethodGet, "/api/recommendation/next", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next domain.Paper
	require.NoError(t, json.Unmarshal(resp.Data, &next))
	assert.Equal(t, paper.ID, next.ID)
	assert.Equal(t, "T:Title 2501.00001", next.TranslatedTitle)

	rec, _ = env.do(t, http.MethodPost, "/api/recommendation/feedback", map[string]any{
		"paper_id": paper.ID, "action": "maybe_later", "note": "weekend",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/list/maybe_later?page=1&per_page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Papers []domain.Paper `json:"papers"`
		Total  int            `json:"total"`
		Pages  int            `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Pages)
	assert.Equal(t, "weekend", page.Papers[0].Note)

	rec, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/list/dislike/%d/remove", paper.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "paper is not in the dislike list")

	rec, resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/list/maybe_later/%d/favorite", paper.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var moved domain.Paper
	require.NoError(t, json.Unmarshal(resp.Data, &moved))
	assert.Equal(t, domain.DispositionFavorite, moved.Disposition)

	rec, resp = env.do(t, http.MethodPost, "/api/config/favorite-summary/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"folded":1,"summary":"1 favorites"}`, string(resp.Data))

	rec, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/list/favorite/%d/remove", paper.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/recommendation/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":0,"ready":1,"running":false}`, string(resp.Data))
}

func TestFeedbackValidation(t *testing.T) {
	env := newTestEnv(t, stubSource{})

	rec, _ := env.do(t, http.MethodPost, "/api/recommendation/feedback", map[string]any{"paper_id": 1, "action": "love"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/recommendation/feedback", map[string]any{"paper_id": 99, "action": "none"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/list/starred", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/list/favorite/1/favorite", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t, stubSource{papers: []domain.Paper{
		{ExternalID: "2503.00001", Title: "New", PublishedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}})

	rec, resp := env.do(t, http.MethodPost, "/api/system/ingest", map[string]any{
		"categories": []string{"cs.RO"}, "from": "2025-03-01", "to": "2025-03-02",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var stats usecase.IngestStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, []string{"cs.RO"}, stats.Categories)

	rec, _ = env.do(t, http.MethodPost, "/api/system/ingest", map[string]any{"from": "03/01/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/system/evaluate", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/system/purge?days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = env.do(t, http.MethodPost, "/api/system/purge?days=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(resp.Data), `"all":true`)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("interest profile: %w", domain.ErrUnconfigured), http.StatusPreconditionFailed},
		{domain.ErrUpstream, http.StatusBadGateway},
		{domain.ErrNotEvaluated, http.StatusBadRequest},
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrRunInProgress, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
