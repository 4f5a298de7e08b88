package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg := Load()

	if cfg.Database.Driver != "sqlite" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.Database, cfg.HTTP)
	}
	if cfg.Evaluation.BatchSize != 10 || cfg.Evaluation.Delay.Std() != 500*time.Millisecond {
		t.Fatalf("unexpected evaluation defaults: %+v", cfg.Evaluation)
	}
	if len(cfg.Ingest.Categories) != 3 || cfg.Ingest.Strategies[0] != "arxiv-api" {
		t.Fatalf("unexpected ingest defaults: %+v", cfg.Ingest)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", cfg.Scheduler.Location())
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "paperfeed.yaml", `
http:
  addr: ":9090"
llm:
  provider: anthropic
  model: claude-3-haiku
  timeout: 45s
evaluation:
  delay: 2s
ingest:
  categories: [cs.IR]
  strategies: [arxiv-list, arxiv-api]
scheduler:
  purgeCron: "off"
  timezone: Europe/Berlin
`)
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Model != "claude-3-haiku" {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout.Std() != 45*time.Second || cfg.Evaluation.Delay.Std() != 2*time.Second {
		t.Fatalf("durations not parsed: %v %v", cfg.LLM.Timeout.Std(), cfg.Evaluation.Delay.Std())
	}
	if len(cfg.Ingest.Strategies) != 2 || cfg.Ingest.Categories[0] != "cs.IR" {
		t.Fatalf("ingest = %+v", cfg.Ingest)
	}
	if Cron(cfg.Scheduler.PurgeCron) != "" {
		t.Fatalf("purge cron should be disabled, got %q", cfg.Scheduler.PurgeCron)
	}
	if Cron(cfg.Scheduler.IngestCron) != "0 6 * * *" {
		t.Fatalf("ingest cron default lost: %q", cfg.Scheduler.IngestCron)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("location = %s", cfg.Scheduler.Location())
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "paperfeed.toml", `
[database]
dsn = "postgres://feed@localhost/feed?sslmode=disable"

[maintenance]
retentionDays = 7

[notifications.telegram]
botToken = "token"
chatId = "42"
`)
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver should be inferred from DSN, got %q", cfg.Database.Driver)
	}
	if cfg.Maintenance.RetentionDays != 7 {
		t.Fatalf("retention = %d", cfg.Maintenance.RetentionDays)
	}
	if cfg.Notifications.Telegram.ChatID != "42" {
		t.Fatalf("telegram = %+v", cfg.Notifications.Telegram)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "paperfeed.yaml", "llm:\n  model: from-file\n")
	t.Setenv(configPathEnv, path)
	t.Setenv(llmModelEnv, "from-env")
	t.Setenv(llmAPIKeyEnv, "sk-test")
	t.Setenv(timezoneEnv, "Not/AZone")

	cfg := Load()
	if cfg.LLM.Model != "from-env" || cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("env overrides not applied: %+v", cfg.LLM)
	}
	if cfg.Scheduler.Timezone != defaultTimezone {
		t.Fatalf("invalid timezone should revert, got %q", cfg.Scheduler.Timezone)
	}
}

func TestLoadBrokenFileFallsBack(t *testing.T) {
	path := writeFile(t, "paperfeed.yaml", "http: [unterminated")
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected defaults after parse failure, got %q", cfg.HTTP.Addr)
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.APIKey = "sk-secret"
	if s := cfg.String(); strings.Contains(s, "sk-secret") {
		t.Fatalf("secret leaked: %s", s)
	}
}
