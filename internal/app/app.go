package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"PaperFeed/internal/config"
	"PaperFeed/internal/domain"
	"PaperFeed/internal/evaluator"
	"PaperFeed/internal/infrastructure/llm"
	"PaperFeed/internal/infrastructure/parser"
	"PaperFeed/internal/infrastructure/scheduler"
	"PaperFeed/internal/infrastructure/storage"
	"PaperFeed/internal/infrastructure/telegram"
	"PaperFeed/internal/logging"
	"PaperFeed/internal/ports"
	"PaperFeed/internal/scanner"
	"PaperFeed/internal/transport/httpapi"
	"PaperFeed/internal/usecase"
)

const stopTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store      *storage.Repository
	router     *llm.Router
	evaluation *usecase.EvaluationScheduler
	aggregator *usecase.Aggregator
	jobs       *usecase.Jobs
	server     *httpapi.Server
}

// New opens storage, seeds runtime settings from the file config and builds every
// component. Close must be called when New succeeds.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := seedSettings(ctx, store, cfg); err != nil {
		_ = store.Close()
		return nil, err
	}

	router := llm.NewRouter(store, llm.Options{
		Timeout:      cfg.LLM.Timeout.Std(),
		SystemPrompt: cfg.LLM.SystemPrompt,
		Logger:       logging.Component(baseLogger, "llm"),
	})
	eval := evaluator.New(router, evaluator.Config{
		TargetLanguage: cfg.Evaluator.TargetLanguage,
		Temperature:    cfg.Evaluator.Temperature,
		MaxTokens:      cfg.Evaluator.MaxTokens,
	}, logging.Component(baseLogger, "evaluator"))

	httpClient := &http.Client{Timeout: 60 * time.Second}
	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivAPIScanner(httpClient, cfg.Ingest.APIBaseURL))
	registry.Register(parser.NewArxivListScanner(httpClient, cfg.Ingest.ListBaseURL))
	source := parser.NewStrategySource(registry, cfg.Ingest.Strategies, cfg.Ingest.MaxResults, logging.Component(baseLogger, "source"))

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Enabled() {
		notifier = tg
	}

	loc := cfg.Scheduler.Location()
	evaluation := usecase.NewEvaluationScheduler(usecase.EvaluationDeps{
		Store:       store,
		Settings:    store,
		Evaluator:   eval,
		Credentials: router,
		Notifier:    notifier,
		Logger:      logging.Component(baseLogger, "evaluation"),
	}, usecase.EvaluationConfig{
		BatchSize: cfg.Evaluation.BatchSize,
		Delay:     cfg.Evaluation.Delay.Std(),
	})
	ingestor := usecase.NewIngestor(source, store, store, evaluation, cfg.Ingest.Categories, loc, logging.Component(baseLogger, "ingest"))
	aggregator := usecase.NewAggregator(store, store, eval, logging.Component(baseLogger, "aggregator"))
	selector := usecase.NewSelector(store, store, eval, ingestor, cfg.Selector.MaxAttempts, logging.Component(baseLogger, "selector"))
	feedback := usecase.NewFeedback(store, store, eval, aggregator, logging.Component(baseLogger, "feedback"))
	maintenance := usecase.NewMaintenance(store, logging.Component(baseLogger, "maintenance"))
	configuration := usecase.NewConfiguration(store, eval,
		[]string{llm.ProviderOpenAI, llm.ProviderAnthropic, llm.ProviderGemini},
		logging.Component(baseLogger, "configuration"))

	jobs := usecase.NewJobs(
		scheduler.NewCronScheduler(loc, logging.Component(baseLogger, "cron")),
		ingestor, evaluation, maintenance,
		usecase.JobsConfig{
			IngestCron:    config.Cron(cfg.Scheduler.IngestCron),
			EvaluateCron:  config.Cron(cfg.Scheduler.EvaluateCron),
			PurgeCron:     config.Cron(cfg.Scheduler.PurgeCron),
			RetentionDays: cfg.Maintenance.RetentionDays,
		},
		logging.Component(baseLogger, "jobs"),
	)

	server := httpapi.New(cfg.HTTP.Addr, httpapi.Services{
		Papers:        store,
		Selector:      selector,
		Feedback:      feedback,
		Aggregator:    aggregator,
		Evaluation:    evaluation,
		Ingestor:      ingestor,
		Maintenance:   maintenance,
		Configuration: configuration,
		RetentionDays: cfg.Maintenance.RetentionDays,
	}, logging.Component(baseLogger, "http"))

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		router:     router,
		evaluation: evaluation,
		aggregator: aggregator,
		jobs:       jobs,
		server:     server,
	}, nil
}

// Run serves the API and background workers until ctx is cancelled or one of them fails.
func (a *Application) Run(ctx context.Context) error {
	a.logger.Info("starting paperfeed", "config", a.cfg.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error { return a.evaluation.Work(gctx) })
	g.Go(func() error { return a.aggregator.Work(gctx) })
	g.Go(func() error {
		if err := a.jobs.Start(gctx); err != nil {
			return fmt.Errorf("start jobs: %w", err)
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return a.jobs.Stop(stopCtx)
	})

	// Whatever a previous process left unevaluated or unfolded is picked up at start-up.
	a.evaluation.Trigger()
	a.aggregator.Trigger()

	return g.Wait()
}

// Close releases the language-model clients and the database.
func (a *Application) Close() error {
	if err := a.router.Close(); err != nil {
		a.logger.Warn("close llm router", "error", err)
	}
	return a.store.Close()
}

// seedSettings stores file/env values for keys that have never been edited at runtime.
func seedSettings(ctx context.Context, store *storage.Repository, cfg config.Config) error {
	defaults := []struct {
		key   domain.SettingKey
		value string
	}{
		{domain.SettingLLMProvider, cfg.LLM.Provider},
		{domain.SettingLLMBaseURL, cfg.LLM.BaseURL},
		{domain.SettingLLMAPIKey, cfg.LLM.APIKey},
		{domain.SettingLLMModel, cfg.LLM.Model},
		{domain.SettingCategories, strings.Join(cfg.Ingest.Categories, ",")},
	}
	for _, d := range defaults {
		if strings.TrimSpace(d.value) == "" {
			continue
		}
		if err := store.SetDefaultSetting(ctx, d.key, d.value); err != nil {
			return fmt.Errorf("seed %s: %w", d.key, err)
		}
	}
	return nil
}
