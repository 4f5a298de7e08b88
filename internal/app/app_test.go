package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"PaperFeed/internal/config"
	"PaperFeed/internal/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("PAPERFEED_CONFIG", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "feed.db"))
	t.Setenv("LLM_API_KEY", "sk-seed")
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	return config.Load()
}

func TestNewSeedsSettingsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	application, err := New(ctx, cfg, logger)
	require.NoError(t, err)

	key, ok, err := application.store.GetSetting(ctx, domain.SettingLLMAPIKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sk-seed", key)

	categories, _, err := application.store.GetSetting(ctx, domain.SettingCategories)
	require.NoError(t, err)
	require.Equal(t, "cs.AI,cs.LG,cs.CL", categories)

	require.NoError(t, application.store.SetSetting(ctx, domain.SettingLLMModel, "edited-at-runtime"))
	require.NoError(t, application.Close())

	reopened, err := New(ctx, cfg, logger)
	require.NoError(t, err)
	defer reopened.Close()

	model, _, err := reopened.store.GetSetting(ctx, domain.SettingLLMModel)
	require.NoError(t, err)
	require.Equal(t, "edited-at-runtime", model)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
}

func TestRunFoldsLeftoverFavoritesAtStartup(t *testing.T) {
	llmServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"m",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"likes sparse models"},"finish_reason":"stop"}]}`)
	}))
	defer llmServer.Close()

	cfg := testConfig(t)
	cfg.LLM.BaseURL = llmServer.URL
	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer application.Close()

	ctx := context.Background()
	_, err = application.store.UpsertIngested(ctx, domain.Paper{ExternalID: "2501.00001", Title: "Sparse", Abstract: "Sparse models."})
	require.NoError(t, err)
	pending, err := application.store.FetchUnevaluated(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID
	require.NoError(t, application.store.RecordEvaluation(ctx, id, domain.Verdict{Recommended: true, Reason: "sparse"}))
	require.NoError(t, application.store.SetDisposition(ctx, id, domain.DispositionFavorite, ""))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- application.Run(runCtx) }()

	require.Eventually(t, func() bool {
		paper, err := application.store.Get(ctx, id)
		return err == nil && paper.SummaryFolded
	}, 5*time.Second, 20*time.Millisecond)

	summary, _, err := application.store.GetSetting(ctx, domain.SettingFavoriteSummary)
	require.NoError(t, err)
	require.Equal(t, "likes sparse models", summary)

	cancel()
	require.NoError(t, <-done)
}
