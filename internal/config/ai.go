package config

import "time"

// OracleModels defines which Gemini models to use for each judgment task
type OracleModels struct {
	// Sentiment runs once per ingested post (needs to be fast)
	Sentiment string `json:"sentiment"`

	// Verdict judges a claim against trusted headlines
	Verdict string `json:"verdict"`

	// Reply drafts the correction text (quality over speed)
	Reply string `json:"reply"`
}

// AIConfig holds all judgment-oracle configuration
type AIConfig struct {
	APIKey       string        `json:"-"` // Never serialize
	BaseURL      string        `json:"baseUrl"`
	Models       OracleModels  `json:"models"`
	Timeout      time.Duration `json:"timeout"`
	RatePerSec   float64       `json:"ratePerSec"`
	Burst        int           `json:"burst"`
	BreakerDelay time.Duration `json:"breakerDelay"`
}

// DefaultAIConfig returns the oracle configuration from the environment
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		APIKey:  GetEnv("GEMINI_API_KEY", ""),
		BaseURL: GetEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		Models: OracleModels{
			Sentiment: GetEnv("GEMINI_MODEL_SENTIMENT", "gemini-2.0-flash"),
			Verdict:   GetEnv("GEMINI_MODEL_VERDICT", "gemini-2.0-flash"),
			Reply:     GetEnv("GEMINI_MODEL_REPLY", "gemini-2.5-flash"),
		},
		Timeout:      GetEnvDuration("ORACLE_TIMEOUT", 10*time.Second),
		RatePerSec:   GetEnvFloat("ORACLE_RATE_PER_SEC", 5),
		Burst:        GetEnvInt("ORACLE_BURST", 10),
		BreakerDelay: GetEnvDuration("ORACLE_BREAKER_DELAY", 30*time.Second),
	}
}

// IsEnabled returns true if the oracle API is configured
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}

// ModelEndpoint returns the full endpoint for a given model
func (c *AIConfig) ModelEndpoint(model string) string {
	return c.BaseURL + "/" + model + ":generateContent"
}
