package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PAPERFEED_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	httpAddrEnv       = "HTTP_ADDR"
	llmProviderEnv    = "LLM_PROVIDER"
	llmBaseURLEnv     = "LLM_BASE_URL"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
	timezoneEnv       = "PAPERFEED_TIMEZONE"

	// disabledCron switches a job off; an empty value in a file means "keep the default".
	disabledCron = "off"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging" toml:"logging"`
	Database      DatabaseConfig     `yaml:"database" toml:"database"`
	HTTP          HTTPConfig         `yaml:"http" toml:"http"`
	LLM           LLMConfig          `yaml:"llm" toml:"llm"`
	Evaluator     EvaluatorConfig    `yaml:"evaluator" toml:"evaluator"`
	Evaluation    EvaluationConfig   `yaml:"evaluation" toml:"evaluation"`
	Selector      SelectorConfig     `yaml:"selector" toml:"selector"`
	Ingest        IngestConfig       `yaml:"ingest" toml:"ingest"`
	Scheduler     SchedulerConfig    `yaml:"scheduler" toml:"scheduler"`
	Maintenance   MaintenanceConfig  `yaml:"maintenance" toml:"maintenance"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DatabaseConfig selects the SQL driver (sqlite or postgres) and its DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LLMConfig seeds the runtime model settings and bounds each call.
type LLMConfig struct {
	Provider     string   `yaml:"provider" toml:"provider"`
	BaseURL      string   `yaml:"baseUrl" toml:"baseUrl"`
	APIKey       string   `yaml:"apiKey" toml:"apiKey"`
	Model        string   `yaml:"model" toml:"model"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
	SystemPrompt string   `yaml:"systemPrompt" toml:"systemPrompt"`
}

// EvaluatorConfig tunes prompts and sampling.
type EvaluatorConfig struct {
	TargetLanguage string  `yaml:"targetLanguage" toml:"targetLanguage"`
	Temperature    float32 `yaml:"temperature" toml:"temperature"`
	MaxTokens      int     `yaml:"maxTokens" toml:"maxTokens"`
}

// EvaluationConfig tunes the background drain.
type EvaluationConfig struct {
	BatchSize int      `yaml:"batchSize" toml:"batchSize"`
	Delay     Duration `yaml:"delay" toml:"delay"`
}

// SelectorConfig bounds inline evaluation on the request path.
type SelectorConfig struct {
	MaxAttempts int `yaml:"maxAttempts" toml:"maxAttempts"`
}

// IngestConfig groups settings for paper sources.
type IngestConfig struct {
	Categories  []string `yaml:"categories" toml:"categories"`
	MaxResults  int      `yaml:"maxResults" toml:"maxResults"`
	APIBaseURL  string   `yaml:"apiBaseUrl" toml:"apiBaseUrl"`
	ListBaseURL string   `yaml:"listBaseUrl" toml:"listBaseUrl"`
	Strategies  []string `yaml:"strategies" toml:"strategies"`
}

// SchedulerConfig defines when recurring jobs run.
type SchedulerConfig struct {
	IngestCron   string         `yaml:"ingestCron" toml:"ingestCron"`
	EvaluateCron string         `yaml:"evaluateCron" toml:"evaluateCron"`
	PurgeCron    string         `yaml:"purgeCron" toml:"purgeCron"`
	Timezone     string         `yaml:"timezone" toml:"timezone"`
	location     *time.Location `yaml:"-" toml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Cron returns the expression for a job, or "" when the job is switched off.
func Cron(spec string) string {
	if strings.EqualFold(strings.TrimSpace(spec), disabledCron) {
		return ""
	}
	return spec
}

// MaintenanceConfig controls the purge job.
type MaintenanceConfig struct {
	RetentionDays int `yaml:"retentionDays" toml:"retentionDays"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" toml:"botToken"`
	ChatID   string `yaml:"chatId" toml:"chatId"`
}

// Duration decodes "30s"-style strings from YAML and TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads the YAML or TOML file named by PAPERFEED_CONFIG (if any) and applies
// environment overrides. Unreadable files are logged and ignored.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

func loadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var fileCfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(raw, &fileCfg)
	default:
		err = yaml.Unmarshal(raw, &fileCfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{databaseDriverEnv, &c.Database.Driver},
		{databaseDSNEnv, &c.Database.DSN},
		{httpAddrEnv, &c.HTTP.Addr},
		{llmProviderEnv, &c.LLM.Provider},
		{llmBaseURLEnv, &c.LLM.BaseURL},
		{llmAPIKeyEnv, &c.LLM.APIKey},
		{llmModelEnv, &c.LLM.Model},
		{telegramTokenEnv, &c.Notifications.Telegram.BotToken},
		{telegramChatIDEnv, &c.Notifications.Telegram.ChatID},
		{logLevelEnv, &c.Logging.Level},
		{timezoneEnv, &c.Scheduler.Timezone},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.env)); v != "" {
			*o.target = v
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		tz = defaultTimezone
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.Timezone = tz
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
		base.Database.Driver = override.Database.Driver
		if base.Database.Driver == "" {
			base.Database.Driver = inferDriver(override.Database.DSN)
		}
	}
	mergeString(&base.Database.Driver, override.Database.Driver)
	mergeString(&base.HTTP.Addr, override.HTTP.Addr)

	mergeString(&base.LLM.Provider, override.LLM.Provider)
	mergeString(&base.LLM.BaseURL, override.LLM.BaseURL)
	mergeString(&base.LLM.APIKey, override.LLM.APIKey)
	mergeString(&base.LLM.Model, override.LLM.Model)
	mergeString(&base.LLM.SystemPrompt, override.LLM.SystemPrompt)
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	mergeString(&base.Evaluator.TargetLanguage, override.Evaluator.TargetLanguage)
	if override.Evaluator.Temperature > 0 {
		base.Evaluator.Temperature = override.Evaluator.Temperature
	}
	mergeInt(&base.Evaluator.MaxTokens, override.Evaluator.MaxTokens)

	mergeInt(&base.Evaluation.BatchSize, override.Evaluation.BatchSize)
	if override.Evaluation.Delay > 0 {
		base.Evaluation.Delay = override.Evaluation.Delay
	}
	mergeInt(&base.Selector.MaxAttempts, override.Selector.MaxAttempts)

	if len(override.Ingest.Categories) > 0 {
		base.Ingest.Categories = override.Ingest.Categories
	}
	mergeInt(&base.Ingest.MaxResults, override.Ingest.MaxResults)
	mergeString(&base.Ingest.APIBaseURL, override.Ingest.APIBaseURL)
	mergeString(&base.Ingest.ListBaseURL, override.Ingest.ListBaseURL)
	if len(override.Ingest.Strategies) > 0 {
		base.Ingest.Strategies = override.Ingest.Strategies
	}

	mergeString(&base.Scheduler.IngestCron, override.Scheduler.IngestCron)
	mergeString(&base.Scheduler.EvaluateCron, override.Scheduler.EvaluateCron)
	mergeString(&base.Scheduler.PurgeCron, override.Scheduler.PurgeCron)
	mergeString(&base.Scheduler.Timezone, override.Scheduler.Timezone)

	mergeInt(&base.Maintenance.RetentionDays, override.Maintenance.RetentionDays)

	mergeString(&base.Notifications.Telegram.BotToken, override.Notifications.Telegram.BotToken)
	mergeString(&base.Notifications.Telegram.ChatID, override.Notifications.Telegram.ChatID)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func inferDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: filepath.Join("data", "paperfeed.db")},
		HTTP:     HTTPConfig{Addr: ":8080"},
		LLM: LLMConfig{
			Provider: "openai",
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  Duration(30 * time.Second),
		},
		Evaluator:  EvaluatorConfig{TargetLanguage: "Chinese", Temperature: 0.7, MaxTokens: 500},
		Evaluation: EvaluationConfig{BatchSize: 10, Delay: Duration(500 * time.Millisecond)},
		Selector:   SelectorConfig{MaxAttempts: 20},
		Ingest: IngestConfig{
			Categories:  []string{"cs.AI", "cs.LG", "cs.CL"},
			MaxResults:  1000,
			APIBaseURL:  "http://export.arxiv.org/api/query",
			ListBaseURL: "https://arxiv.org",
			Strategies:  []string{"arxiv-api"},
		},
		Scheduler: SchedulerConfig{
			IngestCron:   "0 6 * * *",
			EvaluateCron: "*/30 * * * *",
			PurgeCron:    "0 3 * * 0",
			Timezone:     defaultTimezone,
			location:     tz,
		},
		Maintenance: MaintenanceConfig{RetentionDays: 30},
	}
}

// String renders the effective configuration with secrets masked, for start-up logs.
func (c Config) String() string {
	return fmt.Sprintf("driver=%s http=%s llm=%s/%s key=%s strategies=%s tz=%s telegram=%s",
		c.Database.Driver, c.HTTP.Addr, c.LLM.Provider, c.LLM.Model, mask(c.LLM.APIKey),
		strings.Join(c.Ingest.Strategies, ","), c.Scheduler.Timezone,
		strconv.FormatBool(c.Notifications.Telegram.BotToken != "" && c.Notifications.Telegram.ChatID != ""))
}

func mask(secret string) string {
	if secret == "" {
		return "unset"
	}
	return "set"
}
