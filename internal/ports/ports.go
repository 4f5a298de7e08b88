package ports

import (
	"context"
	"time"

	"PaperFeed/internal/domain"
)

// PaperSource pulls candidate papers from upstream providers for a date window.
type PaperSource interface {
	Fetch(ctx context.Context, window Window) ([]domain.Paper, error)
}

// Window is an inclusive day range plus the categories to query.
type Window struct {
	From       time.Time
	To         time.Time
	Categories []string
}

// PaperStore persists papers and their lifecycle state.
type PaperStore interface {
	UpsertIngested(ctx context.Context, paper domain.Paper) (domain.IngestResult, error)
	Get(ctx context.Context, id int64) (domain.Paper, error)
	FetchUnevaluated(ctx context.Context, limit int) ([]domain.Paper, error)
	FetchReadyUnseen(ctx context.Context, limit int) ([]domain.Paper, error)
	RecordEvaluation(ctx context.Context, id int64, verdict domain.Verdict) error
	RecordTranslation(ctx context.Context, id int64, translation domain.Translation) error
	SetDisposition(ctx context.Context, id int64, disposition domain.Disposition, note string) error
	FetchUnfoldedFavorites(ctx context.Context) ([]domain.Paper, error)
	MarkFolded(ctx context.Context, id int64) error
	ListByDisposition(ctx context.Context, disposition domain.Disposition, page, perPage int) (domain.Page, error)
	PurgeStale(ctx context.Context, cutoff time.Time, deleteAll bool) (int64, error)
	CountUnevaluated(ctx context.Context) (int, error)
	CountReady(ctx context.Context) (int, error)
}

// SettingsStore is the flat key/value runtime configuration.
type SettingsStore interface {
	GetSetting(ctx context.Context, key domain.SettingKey) (string, bool, error)
	SetSetting(ctx context.Context, key domain.SettingKey, value string) error
	SetDefaultSetting(ctx context.Context, key domain.SettingKey, value string) error
}

// ChatMessage is a single turn in a chat-completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest mirrors the chat-completion request shape; the model comes from settings.
type ChatRequest struct {
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float32
}

// ChatClient sends chat-completion requests to an LLM provider.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Evaluator scores, translates and summarizes papers via a language model.
type Evaluator interface {
	Score(ctx context.Context, paper domain.Paper, profile, favoriteSummary string) (domain.Verdict, error)
	Translate(ctx context.Context, title, abstract string) (domain.Translation, error)
	RefineInterests(ctx context.Context, raw string) (string, error)
	SummarizeFavorites(ctx context.Context, batch []domain.Paper, prior string) (string, error)
	TestConnection(ctx context.Context) bool
}

// Notifier streams digests of fresh recommendations to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Add(name, spec string, job func(context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
