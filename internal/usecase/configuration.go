package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

// LLMSettings is the readable view of the model configuration; the key itself never leaves the store.
type LLMSettings struct {
	Provider  string `json:"provider"`
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	HasAPIKey bool   `json:"has_api_key"`
}

// LLMUpdate changes model settings. An empty APIKey keeps the stored key.
type LLMUpdate struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// Interests holds the raw and refined interest texts.
type Interests struct {
	Raw     string `json:"raw"`
	Refined string `json:"refined"`
	Warning string `json:"warning,omitempty"`
}

// ConfigStatus tells the UI which setup steps are done.
type ConfigStatus struct {
	LLMConfigured        bool `json:"llm_configured"`
	InterestsConfigured  bool `json:"interests_configured"`
	CategoriesConfigured bool `json:"categories_configured"`
}

// Configuration reads and writes runtime settings on behalf of the request layer.
type Configuration struct {
	settings  ports.SettingsStore
	evaluator ports.Evaluator
	providers []string
	logger    *slog.Logger
}

// NewConfiguration builds the settings use case; providers lists the accepted llm.provider values.
func NewConfiguration(settings ports.SettingsStore, evaluator ports.Evaluator, providers []string, logger *slog.Logger) *Configuration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Configuration{settings: settings, evaluator: evaluator, providers: providers, logger: logger}
}

// Status reports whether credentials, interests and categories are present.
func (c *Configuration) Status(ctx context.Context) (ConfigStatus, error) {
	llm, err := c.LLM(ctx)
	if err != nil {
		return ConfigStatus{}, err
	}
	interests, err := c.Interests(ctx)
	if err != nil {
		return ConfigStatus{}, err
	}
	categories, err := readSetting(ctx, c.settings, domain.SettingCategories)
	if err != nil {
		return ConfigStatus{}, err
	}
	return ConfigStatus{
		LLMConfigured:        llm.HasAPIKey && llm.Model != "",
		InterestsConfigured:  interests.Raw != "" || interests.Refined != "",
		CategoriesConfigured: categories != "",
	}, nil
}

// LLM returns the current model settings.
func (c *Configuration) LLM(ctx context.Context) (LLMSettings, error) {
	var out LLMSettings
	var err error
	if out.Provider, err = readSetting(ctx, c.settings, domain.SettingLLMProvider); err != nil {
		return LLMSettings{}, err
	}
	if out.BaseURL, err = readSetting(ctx, c.settings, domain.SettingLLMBaseURL); err != nil {
		return LLMSettings{}, err
	}
	if out.Model, err = readSetting(ctx, c.settings, domain.SettingLLMModel); err != nil {
		return LLMSettings{}, err
	}
	key, err := readSetting(ctx, c.settings, domain.SettingLLMAPIKey)
	if err != nil {
		return LLMSettings{}, err
	}
	out.HasAPIKey = key != ""
	return out, nil
}

// UpdateLLM validates and stores model settings.
func (c *Configuration) UpdateLLM(ctx context.Context, update LLMUpdate) (LLMSettings, error) {
	provider := strings.ToLower(strings.TrimSpace(update.Provider))
	if provider != "" && len(c.providers) > 0 && !slices.Contains(c.providers, provider) {
		return LLMSettings{}, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidArgument, update.Provider)
	}
	if strings.TrimSpace(update.Model) == "" {
		return LLMSettings{}, fmt.Errorf("%w: model is required", domain.ErrInvalidArgument)
	}

	values := map[domain.SettingKey]string{
		domain.SettingLLMProvider: provider,
		domain.SettingLLMBaseURL:  strings.TrimSpace(update.BaseURL),
		domain.SettingLLMModel:    strings.TrimSpace(update.Model),
	}
	if key := strings.TrimSpace(update.APIKey); key != "" {
		values[domain.SettingLLMAPIKey] = key
	}

	for key, value := range values {
		if err := c.settings.SetSetting(ctx, key, value); err != nil {
			return LLMSettings{}, fmt.Errorf("store %s: %w", key, err)
		}
	}
	c.logger.Info("llm settings updated", "provider", provider, "model", update.Model)
	return c.LLM(ctx)
}

// TestLLM fires a minimal request with the stored settings.
func (c *Configuration) TestLLM(ctx context.Context) bool {
	return c.evaluator.TestConnection(ctx)
}

// Interests returns the stored interest texts.
func (c *Configuration) Interests(ctx context.Context) (Interests, error) {
	raw, err := readSetting(ctx, c.settings, domain.SettingInterestsRaw)
	if err != nil {
		return Interests{}, err
	}
	refined, err := readSetting(ctx, c.settings, domain.SettingInterestsRefined)
	if err != nil {
		return Interests{}, err
	}
	return Interests{Raw: raw, Refined: refined}, nil
}

// UpdateInterests stores the raw text and its refined form. When refinement fails the
// raw text is still kept, the refined text is cleared and the failure is reported as a warning.
func (c *Configuration) UpdateInterests(ctx context.Context, raw string) (Interests, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Interests{}, fmt.Errorf("%w: interests must not be empty", domain.ErrInvalidArgument)
	}
	if err := c.settings.SetSetting(ctx, domain.SettingInterestsRaw, raw); err != nil {
		return Interests{}, fmt.Errorf("store interests: %w", err)
	}

	out := Interests{Raw: raw}
	refined, err := c.evaluator.RefineInterests(ctx, raw)
	if err != nil {
		c.logger.Warn("refine interests failed", "error", err)
		out.Warning = "interests saved without refinement: " + err.Error()
	} else {
		out.Refined = strings.TrimSpace(refined)
	}

	if err := c.settings.SetSetting(ctx, domain.SettingInterestsRefined, out.Refined); err != nil {
		return Interests{}, fmt.Errorf("store refined interests: %w", err)
	}
	return out, nil
}

// Categories returns the configured categories, or the defaults when none are stored.
func (c *Configuration) Categories(ctx context.Context) ([]string, error) {
	stored, err := readSetting(ctx, c.settings, domain.SettingCategories)
	if err != nil {
		return nil, err
	}
	if cats := cleanCategories(strings.Split(stored, ",")); len(cats) > 0 {
		return cats, nil
	}
	return append([]string(nil), domain.DefaultCategories...), nil
}

// UpdateCategories replaces the ingestion categories.
func (c *Configuration) UpdateCategories(ctx context.Context, categories []string) ([]string, error) {
	cats := cleanCategories(categories)
	if len(cats) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", domain.ErrInvalidArgument)
	}
	for _, code := range cats {
		if !domain.KnownCategory(code) {
			c.logger.Warn("category not in catalogue, keeping it anyway", "category", code)
		}
	}
	if err := c.settings.SetSetting(ctx, domain.SettingCategories, strings.Join(cats, ",")); err != nil {
		return nil, fmt.Errorf("store categories: %w", err)
	}
	return cats, nil
}

// FavoriteSummary returns the running summary of favorites.
func (c *Configuration) FavoriteSummary(ctx context.Context) (string, error) {
	return readSetting(ctx, c.settings, domain.SettingFavoriteSummary)
}

// UpdateFavoriteSummary overwrites the summary by hand.
func (c *Configuration) UpdateFavoriteSummary(ctx context.Context, summary string) error {
	if err := c.settings.SetSetting(ctx, domain.SettingFavoriteSummary, strings.TrimSpace(summary)); err != nil {
		return fmt.Errorf("store favorite summary: %w", err)
	}
	return nil
}
