package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AWS       AWSConfig       `yaml:"aws"`
	Collector CollectorConfig `yaml:"collector"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// TrackingConfig holds the click redirect service settings
type TrackingConfig struct {
	Port          int    `yaml:"port"`
	BaseURL       string `yaml:"base_url"`
	LinkTemplate  string `yaml:"link_template"`
	SigningSecret string `yaml:"signing_secret"`
	PostbackToken string `yaml:"postback_token"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnLifetime returns the connection max lifetime as a duration
func (c DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AWSConfig holds AWS resource names
type AWSConfig struct {
	Region             string `yaml:"region"`
	Profile            string `yaml:"profile"` // Empty string uses default credential chain
	AccessKeyID        string `yaml:"access_key_id"`
	SecretAccessKey    string `yaml:"secret_access_key"`
	ReportBucket       string `yaml:"report_bucket"`
	ReportTable        string `yaml:"report_table"`
	ClickQueueURL      string `yaml:"click_queue_url"`
	ConversionQueueURL string `yaml:"conversion_queue_url"`
	LocalArchivePath   string `yaml:"local_archive_path"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// CollectorConfig holds offer collection settings
type CollectorConfig struct {
	BaseURL        string              `yaml:"base_url"`
	PartnerID      string              `yaml:"partner_id"`
	APIKey         string              `yaml:"api_key"`
	Secret         string              `yaml:"secret"`
	TimeoutSeconds int                 `yaml:"timeout_seconds"`
	MaxRetries     int                 `yaml:"max_retries"`
	PageSize       int                 `yaml:"page_size"`
	FeedURLs       map[string][]string `yaml:"feed_urls"`
	FeedCommission float64             `yaml:"feed_commission"`
	MinPrice       float64             `yaml:"min_price"`
	MinCommission  float64             `yaml:"min_commission"`
	MinRating      float64             `yaml:"min_rating"`
	MinReviews     int64               `yaml:"min_reviews"`
}

// Timeout returns the HTTP timeout as a duration
func (c CollectorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RankingConfig holds selection defaults
type RankingConfig struct {
	DefaultTopN            int  `yaml:"default_top_n"`
	Diversify              bool `yaml:"diversify"`
	RefreshIntervalMinutes int  `yaml:"refresh_interval_minutes"`
	LockTTLSeconds         int  `yaml:"lock_ttl_seconds"`
}

// RefreshInterval returns how often the worker re-ranks each niche
func (c RankingConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// LockTTL returns the score commit lock lifetime
func (c RankingConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Redact *bool  `yaml:"redact"`
}

// RedactEnabled reports whether log values should be redacted (default true)
func (c LoggingConfig) RedactEnabled() bool {
	return c.Redact == nil || *c.Redact
}

// Load reads configuration from a YAML file and applies defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Tracking.Port == 0 {
		cfg.Tracking.Port = 8081
	}
	if cfg.Tracking.LinkTemplate == "" {
		cfg.Tracking.LinkTemplate = "{{ url }}?sub_id1={{ sub1 }}&sub_id2={{ sub2 }}&sub_id3={{ sub3 }}&sub_id4={{ sub4 }}&sub_id5={{ sub5 }}"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Collector.TimeoutSeconds == 0 {
		cfg.Collector.TimeoutSeconds = 30
	}
	if cfg.Collector.MaxRetries == 0 {
		cfg.Collector.MaxRetries = 3
	}
	if cfg.Collector.PageSize == 0 {
		cfg.Collector.PageSize = 50
	}
	if cfg.Collector.MinPrice == 0 {
		cfg.Collector.MinPrice = 10
	}
	if cfg.Collector.MinCommission == 0 {
		cfg.Collector.MinCommission = 2
	}
	if cfg.Collector.MinRating == 0 {
		cfg.Collector.MinRating = 3.5
	}
	if cfg.Collector.MinReviews == 0 {
		cfg.Collector.MinReviews = 10
	}
	if cfg.Ranking.DefaultTopN == 0 {
		cfg.Ranking.DefaultTopN = 10
	}
	if cfg.Ranking.RefreshIntervalMinutes == 0 {
		cfg.Ranking.RefreshIntervalMinutes = 60
	}
	if cfg.Ranking.LockTTLSeconds == 0 {
		cfg.Ranking.LockTTLSeconds = 120
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
}

// LoadFromEnv loads configuration from a file, then .env and environment
// variables on top of it.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretAccessKey = v
	}
	if v := os.Getenv("REPORT_BUCKET"); v != "" {
		cfg.AWS.ReportBucket = v
	}
	if v := os.Getenv("REPORT_TABLE"); v != "" {
		cfg.AWS.ReportTable = v
	}
	if v := os.Getenv("CLICK_QUEUE_URL"); v != "" {
		cfg.AWS.ClickQueueURL = v
	}
	if v := os.Getenv("CONVERSION_QUEUE_URL"); v != "" {
		cfg.AWS.ConversionQueueURL = v
	}
	if v := os.Getenv("AFFILIATE_BASE_URL"); v != "" {
		cfg.Collector.BaseURL = v
	}
	if v := os.Getenv("AFFILIATE_PARTNER_ID"); v != "" {
		cfg.Collector.PartnerID = v
	}
	if v := os.Getenv("AFFILIATE_API_KEY"); v != "" {
		cfg.Collector.APIKey = v
	}
	if v := os.Getenv("AFFILIATE_SECRET"); v != "" {
		cfg.Collector.Secret = v
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}
	if v := os.Getenv("TRACKING_SECRET"); v != "" {
		cfg.Tracking.SigningSecret = v
	}
	if v := os.Getenv("POSTBACK_TOKEN"); v != "" {
		cfg.Tracking.PostbackToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
