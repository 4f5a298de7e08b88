package domain

// SettingKey names a runtime configuration value kept in the settings table.
type SettingKey string

const (
	SettingLLMProvider      SettingKey = "llm.provider"
	SettingLLMBaseURL       SettingKey = "llm.base_url"
	SettingLLMAPIKey        SettingKey = "llm.api_key"
	SettingLLMModel         SettingKey = "llm.model"
	SettingInterestsRaw     SettingKey = "interests.raw"
	SettingInterestsRefined SettingKey = "interests.refined"
	SettingFavoriteSummary  SettingKey = "favorites.summary"
	SettingCategories       SettingKey = "ingest.categories"
	SettingWatermark        SettingKey = "ingest.watermark"
)

// WatermarkLayout is the date format used for the ingestion watermark.
const WatermarkLayout = "2006-01-02"
