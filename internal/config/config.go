package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the quotehunter server.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Transport TransportConfig
	Trigger   TriggerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Directus  DirectusConfig
	Redis     RedisConfig
	Vision    VisionConfig
	Frames    FramesConfig
	Quote     QuoteConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
}

type LogConfig struct {
	Level string
}

// TransportConfig holds the chat transport credential and the endpoint cards are posted to.
type TransportConfig struct {
	Token      string
	WebhookURL string
	Platform   string
	// BotID is the transport user the service posts as; its messages never trigger.
	BotID string
}

// TriggerConfig restricts which channel may start pipelines. Empty means any.
type TriggerConfig struct {
	ChannelID string
}

type StoreConfig struct {
	Driver  string
	Timeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type DirectusConfig struct {
	BaseURL string
	Token   string
}

// RedisConfig is optional; an empty URL disables caching.
type RedisConfig struct {
	URL       string
	MatchTTL  time.Duration
	StatusTTL time.Duration
}

type VisionConfig struct {
	Provider      string
	Timeout       time.Duration
	RatePerMinute int
	MaxTokens     int
	Anthropic     AnthropicConfig
	OpenAI        OpenAIConfig
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type FramesConfig struct {
	Provider  string
	Timeout   time.Duration
	MaxFrames int
	S3        S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// QuoteConfig sets the order parameters used when a trigger does not specify them.
type QuoteConfig struct {
	Quantity   int
	Complexity string
}

var validStoreDrivers = map[string]bool{
	"postgres": true,
	"directus": true,
	"memory":   true,
}

var validVisionProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"mock":      true,
}

var validFrameProviders = map[string]bool{
	"placeholder": true,
	"s3":          true,
}

var validComplexities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// bindings maps config keys to the environment variables that set them.
var bindings = map[string]string{
	"server.port":                "PORT",
	"server.env":                 "QUOTEHUNTER_ENV",
	"server.requests_per_minute": "RATE_LIMIT_PER_MINUTE",
	"log.level":                  "LOG_LEVEL",
	"transport.token":            "TRANSPORT_TOKEN",
	"transport.webhook_url":      "TRANSPORT_WEBHOOK_URL",
	"transport.platform":         "TRANSPORT_PLATFORM",
	"transport.bot_id":           "TRANSPORT_BOT_ID",
	"trigger.channel_id":         "TRIGGER_CHANNEL_ID",
	"store.driver":               "STORE_DRIVER",
	"store.timeout":              "STORE_TIMEOUT",
	"database.url":               "DATABASE_URL",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
	"database.migrations_dir":    "DATABASE_MIGRATIONS_DIR",
	"directus.base_url":          "DIRECTUS_URL",
	"directus.token":             "DIRECTUS_TOKEN",
	"redis.url":                  "REDIS_URL",
	"redis.match_ttl":            "REDIS_MATCH_TTL",
	"redis.status_ttl":           "REDIS_STATUS_TTL",
	"vision.provider":            "VISION_PROVIDER",
	"vision.timeout":             "VISION_TIMEOUT",
	"vision.rate_per_minute":     "VISION_RATE_PER_MINUTE",
	"vision.max_tokens":          "VISION_MAX_TOKENS",
	"vision.anthropic.api_key":   "ANTHROPIC_API_KEY",
	"vision.anthropic.model":     "ANTHROPIC_MODEL",
	"vision.anthropic.base_url":  "ANTHROPIC_BASE_URL",
	"vision.openai.api_key":      "OPENAI_API_KEY",
	"vision.openai.model":        "OPENAI_MODEL",
	"vision.openai.base_url":     "OPENAI_BASE_URL",
	"frames.provider":            "FRAME_PROVIDER",
	"frames.timeout":             "FRAME_TIMEOUT",
	"frames.max_frames":          "FRAME_MAX_FRAMES",
	"frames.s3.endpoint":         "FRAME_S3_ENDPOINT",
	"frames.s3.region":           "FRAME_S3_REGION",
	"frames.s3.bucket":           "FRAME_S3_BUCKET",
	"frames.s3.prefix":           "FRAME_S3_PREFIX",
	"frames.s3.access_key":       "FRAME_S3_ACCESS_KEY",
	"frames.s3.secret_key":       "FRAME_S3_SECRET_KEY",
	"frames.s3.use_ssl":          "FRAME_S3_USE_SSL",
	"quote.quantity":             "QUOTE_QUANTITY",
	"quote.complexity":           "QUOTE_COMPLEXITY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")
	v.SetDefault("server.requests_per_minute", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("transport.platform", "TikTok")
	v.SetDefault("transport.bot_id", "quotehunter")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.timeout", 10*time.Second)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("directus.base_url", "http://localhost:8055")
	v.SetDefault("redis.match_ttl", 10*time.Minute)
	v.SetDefault("redis.status_ttl", 30*time.Minute)
	v.SetDefault("vision.provider", "anthropic")
	v.SetDefault("vision.timeout", 60*time.Second)
	v.SetDefault("vision.rate_per_minute", 30)
	v.SetDefault("vision.max_tokens", 1000)
	v.SetDefault("vision.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("vision.openai.model", "gpt-4o")
	v.SetDefault("vision.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("frames.provider", "placeholder")
	v.SetDefault("frames.timeout", 30*time.Second)
	v.SetDefault("frames.max_frames", 3)
	v.SetDefault("frames.s3.region", "us-east-1")
	v.SetDefault("frames.s3.prefix", "frames")
	v.SetDefault("frames.s3.use_ssl", true)
	v.SetDefault("quote.quantity", 1000)
	v.SetDefault("quote.complexity", "medium")
}

// Load reads configuration from the environment (and an optional .env file)
// and returns a validated Config. Returns an error with a descriptive message
// if any required value is missing or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:              v.GetInt("server.port"),
			Env:               v.GetString("server.env"),
			RequestsPerMinute: v.GetInt("server.requests_per_minute"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Transport: TransportConfig{
			Token:      v.GetString("transport.token"),
			WebhookURL: v.GetString("transport.webhook_url"),
			Platform:   v.GetString("transport.platform"),
			BotID:      v.GetString("transport.bot_id"),
		},
		Trigger: TriggerConfig{
			ChannelID: v.GetString("trigger.channel_id"),
		},
		Store: StoreConfig{
			Driver:  v.GetString("store.driver"),
			Timeout: v.GetDuration("store.timeout"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			MigrationsDir:   v.GetString("database.migrations_dir"),
		},
		Directus: DirectusConfig{
			BaseURL: v.GetString("directus.base_url"),
			Token:   v.GetString("directus.token"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("redis.url"),
			MatchTTL:  v.GetDuration("redis.match_ttl"),
			StatusTTL: v.GetDuration("redis.status_ttl"),
		},
		Vision: VisionConfig{
			Provider:      v.GetString("vision.provider"),
			Timeout:       v.GetDuration("vision.timeout"),
			RatePerMinute: v.GetInt("vision.rate_per_minute"),
			MaxTokens:     v.GetInt("vision.max_tokens"),
			Anthropic: AnthropicConfig{
				APIKey:  v.GetString("vision.anthropic.api_key"),
				Model:   v.GetString("vision.anthropic.model"),
				BaseURL: v.GetString("vision.anthropic.base_url"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  v.GetString("vision.openai.api_key"),
				Model:   v.GetString("vision.openai.model"),
				BaseURL: v.GetString("vision.openai.base_url"),
			},
		},
		Frames: FramesConfig{
			Provider:  v.GetString("frames.provider"),
			Timeout:   v.GetDuration("frames.timeout"),
			MaxFrames: v.GetInt("frames.max_frames"),
			S3: S3Config{
				Endpoint:  v.GetString("frames.s3.endpoint"),
				Region:    v.GetString("frames.s3.region"),
				Bucket:    v.GetString("frames.s3.bucket"),
				Prefix:    v.GetString("frames.s3.prefix"),
				AccessKey: v.GetString("frames.s3.access_key"),
				SecretKey: v.GetString("frames.s3.secret_key"),
				UseSSL:    v.GetBool("frames.s3.use_ssl"),
			},
		},
		Quote: QuoteConfig{
			Quantity:   v.GetInt("quote.quantity"),
			Complexity: v.GetString("quote.complexity"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// minDuration guards against unit-less values, which viper reads as
// nanoseconds.
const minDuration = time.Second

func (c *Config) validate() error {
	if c.Transport.Token == "" {
		return fmt.Errorf("TRANSPORT_TOKEN is required")
	}
	if c.Transport.WebhookURL != "" && !isHTTPURL(c.Transport.WebhookURL) {
		return fmt.Errorf("TRANSPORT_WEBHOOK_URL must start with http:// or https://, got %q", c.Transport.WebhookURL)
	}

	if !validStoreDrivers[c.Store.Driver] {
		return fmt.Errorf("STORE_DRIVER must be one of postgres, directus, memory; got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
	}
	if c.Store.Driver == "directus" {
		if !isHTTPURL(c.Directus.BaseURL) {
			return fmt.Errorf("DIRECTUS_URL must start with http:// or https://, got %q", c.Directus.BaseURL)
		}
		if c.Directus.Token == "" {
			return fmt.Errorf("DIRECTUS_TOKEN is required when STORE_DRIVER is directus")
		}
	}

	if !validVisionProviders[c.Vision.Provider] {
		return fmt.Errorf("VISION_PROVIDER must be one of anthropic, openai, mock; got %q", c.Vision.Provider)
	}
	if c.Vision.Provider == "anthropic" && c.Vision.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when VISION_PROVIDER is anthropic")
	}
	if c.Vision.Provider == "openai" && c.Vision.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when VISION_PROVIDER is openai")
	}

	if !validFrameProviders[c.Frames.Provider] {
		return fmt.Errorf("FRAME_PROVIDER must be one of placeholder, s3; got %q", c.Frames.Provider)
	}
	if c.Frames.Provider == "s3" && c.Frames.S3.Bucket == "" {
		return fmt.Errorf("FRAME_S3_BUCKET is required when FRAME_PROVIDER is s3")
	}
	if c.Frames.MaxFrames <= 0 {
		return fmt.Errorf("FRAME_MAX_FRAMES must be positive, got %d", c.Frames.MaxFrames)
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"STORE_TIMEOUT", c.Store.Timeout},
		{"VISION_TIMEOUT", c.Vision.Timeout},
		{"FRAME_TIMEOUT", c.Frames.Timeout},
		{"REDIS_MATCH_TTL", c.Redis.MatchTTL},
		{"REDIS_STATUS_TTL", c.Redis.StatusTTL},
	}
	for _, dur := range durations {
		if dur.d < minDuration {
			return fmt.Errorf("%s must be at least %s (use a unit such as 30s), got %s", dur.key, minDuration, dur.d)
		}
	}

	if c.Quote.Quantity <= 0 {
		return fmt.Errorf("QUOTE_QUANTITY must be positive, got %d", c.Quote.Quantity)
	}
	if !validComplexities[c.Quote.Complexity] {
		return fmt.Errorf("QUOTE_COMPLEXITY must be one of low, medium, high; got %q", c.Quote.Complexity)
	}

	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
