package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

const (
	// FailedReason is the verdict reason used when the model reply cannot be parsed.
	FailedReason = "evaluation failed"

	defaultTemperature        = 0.7
	defaultMaxTokens          = 500
	defaultTranslateMaxTokens = 1000
	defaultReasonLimit        = 50
	defaultTargetLanguage     = "Chinese"
	summaryAbstractLimit      = 200
	testConnectionTimeout     = 10 * time.Second
)

// Config tunes prompts and sampling.
type Config struct {
	TargetLanguage     string
	Temperature        float32
	MaxTokens          int
	TranslateMaxTokens int
	ReasonLimit        int
}

// Evaluator implements ports.Evaluator over a chat-completion client. It holds no paper state.
type Evaluator struct {
	chat   ports.ChatClient
	cfg    Config
	logger *slog.Logger
}

var _ ports.Evaluator = (*Evaluator)(nil)

// New builds an evaluator, filling unset config values with defaults.
func New(chat ports.ChatClient, cfg Config, logger *slog.Logger) *Evaluator {
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = defaultTargetLanguage
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.TranslateMaxTokens <= 0 {
		cfg.TranslateMaxTokens = defaultTranslateMaxTokens
	}
	if cfg.ReasonLimit <= 0 {
		cfg.ReasonLimit = defaultReasonLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{chat: chat, cfg: cfg, logger: logger}
}

// Score asks the model whether the paper matches the profile. A malformed reply yields a
// negative verdict rather than an error; transport failures are returned.
func (e *Evaluator) Score(ctx context.Context, paper domain.Paper, profile, favoriteSummary string) (domain.Verdict, error) {
	reply, err := e.ask(ctx, scorePrompt(paper, profile, favoriteSummary), e.cfg.MaxTokens)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("score %s: %w", paper.ExternalID, err)
	}

	var parsed struct {
		Recommended flexBool `json:"is_recommended"`
		Reason      string   `json:"reason"`
	}
	if err := decodeJSON(reply, &parsed); err != nil {
		e.logger.Warn("unparseable verdict", "paper", paper.ExternalID, "error", err, "reply", clip(reply, 200))
		return domain.Verdict{Recommended: false, Reason: FailedReason}, nil
	}

	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		reason = "no reason given"
	}
	return domain.Verdict{
		Recommended: bool(parsed.Recommended),
		Reason:      clip(reason, e.cfg.ReasonLimit),
	}, nil
}

// Translate localizes title and abstract; an unparseable reply gives an empty translation.
func (e *Evaluator) Translate(ctx context.Context, title, abstract string) (domain.Translation, error) {
	reply, err := e.ask(ctx, translatePrompt(title, abstract, e.cfg.TargetLanguage), e.cfg.TranslateMaxTokens)
	if err != nil {
		return domain.Translation{}, fmt.Errorf("translate: %w", err)
	}

	var parsed struct {
		Title    string `json:"translated_title"`
		Abstract string `json:"translated_abstract"`
	}
	if err := decodeJSON(reply, &parsed); err != nil {
		e.logger.Warn("unparseable translation", "error", err, "reply", clip(reply, 200))
		return domain.Translation{}, nil
	}
	return domain.Translation{
		Title:    strings.TrimSpace(parsed.Title),
		Abstract: strings.TrimSpace(parsed.Abstract),
	}, nil
}

// RefineInterests condenses a free-form interest description.
func (e *Evaluator) RefineInterests(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("refine interests: empty description")
	}
	reply, err := e.ask(ctx, refinePrompt(raw), e.cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("refine interests: %w", err)
	}
	return reply, nil
}

// SummarizeFavorites folds a batch of newly favorited papers into the prior summary.
// The model only ever sees the running summary plus the batch.
func (e *Evaluator) SummarizeFavorites(ctx context.Context, batch []domain.Paper, prior string) (string, error) {
	if len(batch) == 0 {
		return prior, nil
	}
	reply, err := e.ask(ctx, summaryPrompt(batch, strings.TrimSpace(prior)), e.cfg.MaxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize favorites: %w", err)
	}
	return reply, nil
}

// TestConnection fires a minimal request; any failure reports false.
func (e *Evaluator) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, testConnectionTimeout)
	defer cancel()

	_, err := e.chat.Complete(ctx, ports.ChatRequest{
		Messages:    []ports.ChatMessage{{Role: "user", Content: "Hello, this is a test."}},
		MaxTokens:   10,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		e.logger.Info("llm connection test failed", "error", err)
		return false
	}
	return true
}

func (e *Evaluator) ask(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("chat client: %w", domain.ErrUnconfigured)
	}
	return e.chat.Complete(ctx, ports.ChatRequest{
		Messages:    []ports.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: e.cfg.Temperature,
	})
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
