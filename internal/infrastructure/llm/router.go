package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	defaultTimeout = 30 * time.Second
)

// Settings is the provider selection read from runtime configuration.
type Settings struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// Options tune the router independently of runtime settings.
type Options struct {
	Timeout      time.Duration
	SystemPrompt string
	Logger       *slog.Logger
}

type provider interface {
	complete(ctx context.Context, model string, req ports.ChatRequest) (string, error)
	close() error
}

type buildFunc func(ctx context.Context, s Settings) (provider, error)

// Router implements ports.ChatClient on top of whichever provider the settings name.
// Settings are re-read on every call so edits made through the API apply immediately.
type Router struct {
	settings     ports.SettingsStore
	timeout      time.Duration
	systemPrompt string
	logger       *slog.Logger
	build        buildFunc

	mu      sync.Mutex
	current Settings
	client  *lease
}

// lease counts calls in flight on a provider client. A replaced client is closed
// once its last call returns.
type lease struct {
	provider
	refs    int
	retired bool
}

var _ ports.ChatClient = (*Router)(nil)

// NewRouter builds a router over the settings store.
func NewRouter(settings ports.SettingsStore, opts Options) *Router {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		settings:     settings,
		timeout:      timeout,
		systemPrompt: strings.TrimSpace(opts.SystemPrompt),
		logger:       logger,
		build:        buildProvider,
	}
}

// Configured reports whether an API key is present.
func (r *Router) Configured(ctx context.Context) bool {
	s, err := r.load(ctx)
	return err == nil && s.APIKey != ""
}

// Complete sends one chat-completion request and returns the reply text.
func (r *Router) Complete(ctx context.Context, req ports.ChatRequest) (string, error) {
	s, err := r.load(ctx)
	if err != nil {
		return "", err
	}
	if s.APIKey == "" {
		return "", fmt.Errorf("llm api key: %w", domain.ErrUnconfigured)
	}
	if s.Model == "" {
		return "", fmt.Errorf("llm model: %w", domain.ErrUnconfigured)
	}

	client, err := r.clientFor(ctx, s)
	if err != nil {
		return "", fmt.Errorf("build %s client: %w: %w", s.Provider, domain.ErrUpstream, err)
	}
	defer r.release(client)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := client.complete(callCtx, s.Model, r.withSystemPrompt(req))
	if err != nil {
		return "", fmt.Errorf("%s completion: %w: %w", s.Provider, domain.ErrUpstream, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s completion: %w: empty reply", s.Provider, domain.ErrUpstream)
	}
	return text, nil
}

// Close releases the cached provider client.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	old := r.client
	r.client = nil
	return r.retire(old)
}

func (r *Router) load(ctx context.Context) (Settings, error) {
	var s Settings
	fields := []struct {
		key  domain.SettingKey
		dest *string
	}{
		{domain.SettingLLMProvider, &s.Provider},
		{domain.SettingLLMBaseURL, &s.BaseURL},
		{domain.SettingLLMAPIKey, &s.APIKey},
		{domain.SettingLLMModel, &s.Model},
	}
	for _, f := range fields {
		value, _, err := r.settings.GetSetting(ctx, f.key)
		if err != nil {
			return Settings{}, fmt.Errorf("load llm settings: %w", err)
		}
		*f.dest = strings.TrimSpace(value)
	}

	s.Provider = strings.ToLower(s.Provider)
	if s.Provider == "" {
		s.Provider = ProviderOpenAI
	}
	return s, nil
}

func (r *Router) clientFor(ctx context.Context, s Settings) (*lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client != nil && r.current == s {
		r.client.refs++
		return r.client, nil
	}

	client, err := r.build(ctx, s)
	if err != nil {
		return nil, err
	}
	if r.client != nil {
		if err := r.retire(r.client); err != nil {
			r.logger.Warn("close previous llm client", "error", err)
		}
	}
	r.logger.Info("llm client ready", "provider", s.Provider, "model", s.Model, "base_url", s.BaseURL)
	r.client = &lease{provider: client, refs: 1}
	r.current = s
	return r.client, nil
}

func (r *Router) release(l *lease) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.refs--
	if l.retired && l.refs == 0 {
		if err := l.close(); err != nil {
			r.logger.Warn("close previous llm client", "error", err)
		}
	}
}

// retire must be called with r.mu held.
func (r *Router) retire(l *lease) error {
	l.retired = true
	if l.refs > 0 {
		return nil
	}
	return l.close()
}

func (r *Router) withSystemPrompt(req ports.ChatRequest) ports.ChatRequest {
	if r.systemPrompt == "" {
		return req
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			return req
		}
	}
	messages := make([]ports.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, ports.ChatMessage{Role: RoleSystem, Content: r.systemPrompt})
	req.Messages = append(messages, req.Messages...)
	return req
}

func buildProvider(ctx context.Context, s Settings) (provider, error) {
	switch s.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(s.APIKey, s.BaseURL), nil
	case ProviderAnthropic:
		return newAnthropicClient(s.APIKey, s.BaseURL), nil
	case ProviderGemini:
		return newGeminiClient(ctx, s.APIKey)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", s.Provider)
	}
}
