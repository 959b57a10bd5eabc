package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the process-wide configuration for the brandwatch server
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string

	OperatorUsername string
	OperatorPassword string
	JWTSecret        string

	Pipeline PipelineConfig
	Jobs     JobsConfig
	Platform PlatformConfig
	AI       *AIConfig
}

// PipelineConfig tunes the detection and synthesis stages
type PipelineConfig struct {
	RetweetWeight          float64
	MaxContentChars        int
	ResponseFooter         string
	AutoPost               bool
	RespondWithoutEvidence bool
	EvidenceTimeout        time.Duration
	MonitorCacheTTL        time.Duration
}

// JobsConfig tunes the orchestrator
type JobsConfig struct {
	Concurrency   int
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	PollInterval  time.Duration
	JobTimeout    time.Duration
	DedupVerify   bool
	SweepSpec     string
	SweepGrace    time.Duration
	SweepBatch    int
	QueuePrefix   string
	EventsChannel string
}

// PlatformConfig configures the target platform used for publishing
type PlatformConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RatePerSec float64
}

// Load reads .env files (if present) and then the process environment
func Load(logger *logrus.Logger) *Config {
	LoadEnv(logger)

	return &Config{
		MongoURI:      GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: GetEnv("MONGO_DATABASE", "brandwatch"),
		RedisAddr:     strings.TrimPrefix(GetEnv("REDIS_URI", "localhost:6379"), "redis://"),
		HTTPPort:      GetEnv("PORT", "8080"),

		OperatorUsername: GetEnv("OPERATOR_USERNAME", "admin"),
		OperatorPassword: GetEnv("OPERATOR_PASSWORD", "password123"),
		JWTSecret:        GetEnv("JWT_SECRET", "super-secret-key-change-in-production"),

		Pipeline: PipelineConfig{
			RetweetWeight:          GetEnvFloat("VIRALITY_RETWEET_WEIGHT", 0.01),
			MaxContentChars:        GetEnvInt("RESPONSE_MAX_CHARS", 1000),
			ResponseFooter:         GetEnv("RESPONSE_FOOTER", "This response was prepared from publicly available reporting."),
			AutoPost:               GetEnvBool("AUTO_POST", false),
			RespondWithoutEvidence: GetEnvBool("RESPOND_WITHOUT_EVIDENCE", true),
			EvidenceTimeout:        GetEnvDuration("EVIDENCE_TIMEOUT", 5*time.Second),
			MonitorCacheTTL:        GetEnvDuration("MONITOR_CACHE_TTL", time.Minute),
		},
		Jobs: JobsConfig{
			Concurrency:   GetEnvInt("JOB_CONCURRENCY", 10),
			MaxAttempts:   GetEnvInt("JOB_MAX_ATTEMPTS", 5),
			BaseBackoff:   GetEnvDuration("JOB_BASE_BACKOFF", 2*time.Second),
			MaxBackoff:    GetEnvDuration("JOB_MAX_BACKOFF", 2*time.Minute),
			PollInterval:  GetEnvDuration("JOB_POLL_INTERVAL", 250*time.Millisecond),
			JobTimeout:    GetEnvDuration("JOB_TIMEOUT", 2*time.Minute),
			DedupVerify:   GetEnvBool("DEDUP_VERIFY_JOBS", false),
			SweepSpec:     GetEnv("SWEEP_SCHEDULE", "@every 5m"),
			SweepGrace:    GetEnvDuration("SWEEP_GRACE", 10*time.Minute),
			SweepBatch:    GetEnvInt("SWEEP_BATCH", 100),
			QueuePrefix:   GetEnv("QUEUE_PREFIX", "brandwatch:jobs"),
			EventsChannel: GetEnv("EVENTS_CHANNEL", "brandwatch:events"),
		},
		Platform: PlatformConfig{
			BaseURL:    GetEnv("PLATFORM_API_URL", "https://api.twitter.com/2"),
			Token:      GetEnv("PLATFORM_BEARER_TOKEN", ""),
			Timeout:    GetEnvDuration("PLATFORM_TIMEOUT", 15*time.Second),
			RatePerSec: GetEnvFloat("PLATFORM_RATE_PER_SEC", 1),
		},
		AI: DefaultAIConfig(),
	}
}

// LoadEnv loads environment variables from local .env files
func LoadEnv(logger *logrus.Logger) {
	files := []string{".env", ".env.dev"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("Failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	if logger == nil {
		return
	}
	if len(loaded) == 0 {
		logger.Debug("No local env files loaded; relying on process environment")
	} else {
		logger.Debugf("Loaded env files: %s", strings.Join(loaded, ", "))
	}
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvFloat gets a float environment variable with a default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default value
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvDuration accepts Go durations ("30s") or plain milliseconds ("1500")
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
