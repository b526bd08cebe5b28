// Package llm provides centralized LLM configuration and client abstractions.
// Model tiers cover the fixed-purpose calls; generation profiles route drafting
// and revision to domain-specialized models.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, feedback structuring
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: requirement extraction, reference summaries
	TierStandard ModelTier = "standard"
	// TierAdvanced is for complex generation: drafting and revising questionnaires
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Profiles maps a generation profile id to a model name.
	// Unmapped profiles use the advanced tier.
	Profiles map[string]string
	// JSONTemperature applies to structured-output calls.
	JSONTemperature float32
	// DraftTemperature applies to questionnaire drafting and revision.
	DraftTemperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Profiles:         map[string]string{},
		JSONTemperature:  0.1,
		DraftTemperature: 0.5,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// ModelForProfile returns the model name serving a generation profile.
func (c *Config) ModelForProfile(profile string) string {
	if model, ok := c.Profiles[profile]; ok && model != "" {
		return model
	}
	return c.GetModel(TierAdvanced)
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := c.clone()
	newConfig.Models[tier] = model
	return newConfig
}

// WithProfile returns a new Config with a model bound to a generation profile
func (c *Config) WithProfile(profile, model string) *Config {
	newConfig := c.clone()
	newConfig.Profiles[profile] = model
	return newConfig
}

func (c *Config) clone() *Config {
	newConfig := &Config{
		Provider:         c.Provider,
		Models:           make(map[ModelTier]string, len(c.Models)),
		Profiles:         make(map[string]string, len(c.Profiles)),
		JSONTemperature:  c.JSONTemperature,
		DraftTemperature: c.DraftTemperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	for k, v := range c.Profiles {
		newConfig.Profiles[k] = v
	}
	return newConfig
}
