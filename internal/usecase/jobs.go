package usecase

import (
	"context"
	"log/slog"

	"PaperFeed/internal/ports"
)

// JobsConfig holds the cron expressions; an empty expression disables that job.
type JobsConfig struct {
	IngestCron    string
	EvaluateCron  string
	PurgeCron     string
	RetentionDays int
}

// Jobs wires the cron driver with the ingestion, drain and purge use cases.
type Jobs struct {
	driver      ports.Scheduler
	ingestor    *Ingestor
	evaluation  *EvaluationScheduler
	maintenance *Maintenance
	cfg         JobsConfig
	logger      *slog.Logger
}

// NewJobs returns a helper to start/stop recurring jobs.
func NewJobs(driver ports.Scheduler, ingestor *Ingestor, evaluation *EvaluationScheduler, maintenance *Maintenance, cfg JobsConfig, logger *slog.Logger) *Jobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jobs{
		driver:      driver,
		ingestor:    ingestor,
		evaluation:  evaluation,
		maintenance: maintenance,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers every configured job with the driver and starts it.
func (j *Jobs) Start(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}

	if j.ingestor != nil {
		if err := j.driver.Add("ingest", j.cfg.IngestCron, j.ingest); err != nil {
			return err
		}
	}
	if j.evaluation != nil {
		if err := j.driver.Add("evaluate", j.cfg.EvaluateCron, j.evaluate); err != nil {
			return err
		}
	}
	if j.maintenance != nil {
		if err := j.driver.Add("purge", j.cfg.PurgeCron, j.purge); err != nil {
			return err
		}
	}

	return j.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (j *Jobs) Stop(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}
	return j.driver.Stop(ctx)
}

func (j *Jobs) ingest(ctx context.Context) {
	if _, err := j.ingestor.IngestRecent(ctx); err != nil {
		j.logger.Error("scheduled ingestion failed", "error", err)
	}
}

func (j *Jobs) evaluate(ctx context.Context) {
	if _, err := j.evaluation.Run(ctx); err != nil {
		j.logger.Warn("scheduled evaluation did not run", "error", err)
	}
}

func (j *Jobs) purge(ctx context.Context) {
	if _, err := j.maintenance.Purge(ctx, j.cfg.RetentionDays, false); err != nil {
		j.logger.Error("scheduled purge failed", "error", err)
	}
}
