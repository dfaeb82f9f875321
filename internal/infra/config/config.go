package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	App          AppConfig          `yaml:"app"`
	HTTP         HTTPConfig         `yaml:"http"`
	Auth         AuthConfig         `yaml:"auth"`
	Risk         RiskConfig         `yaml:"risk"`
	Models       ModelsConfig       `yaml:"models"`
	Routing      RoutingConfig      `yaml:"routing"`
	Localization LocalizationConfig `yaml:"localization"`
	Sites        []SiteConfig       `yaml:"sites"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	History      HistoryConfig      `yaml:"history"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Valkey       ValkeyConfig       `yaml:"valkey"`
	NATS         NATSConfig         `yaml:"nats"`
	Storage      StorageConfig      `yaml:"storage"`
	Notify       NotifyConfig       `yaml:"notify"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// AppConfig names the deployment.
type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	// PublicURL is the externally reachable base URL used in alert links.
	PublicURL string `yaml:"publicUrl"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for POST requests that fail with 5xx.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// AuthConfig controls operator tokens. An empty secret leaves the API open.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	TokenTTL time.Duration `yaml:"tokenTtl"`
}

// RiskConfig holds classification and confidence tuning.
type RiskConfig struct {
	// ThresholdsPath points at a threshold table file; empty uses the built-in table.
	ThresholdsPath  string           `yaml:"thresholdsPath"`
	HighThreshold   float64          `yaml:"highThreshold"`
	MediumThreshold float64          `yaml:"mediumThreshold"`
	Confidence      ConfidenceConfig `yaml:"confidence"`
}

// ConfidenceConfig mirrors the confidence estimator weights.
type ConfidenceConfig struct {
	CoveragePerSensor float64 `yaml:"coveragePerSensor"`
	CoverageWeight    float64 `yaml:"coverageWeight"`
	AgreementWeight   float64 `yaml:"agreementWeight"`
	FallbackCeiling   float64 `yaml:"fallbackCeiling"`
}

// ModelsConfig configures the adapter chain ahead of the rule-based model.
type ModelsConfig struct {
	Primary   PrimaryModelConfig   `yaml:"primary"`
	Secondary SecondaryModelConfig `yaml:"secondary"`
}

// PrimaryModelConfig points at the remote scoring service.
type PrimaryModelConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around the remote model.
type BreakerConfig struct {
	MaxFailures int           `yaml:"maxFailures"`
	OpenTimeout time.Duration `yaml:"openTimeout"`
}

// SecondaryModelConfig holds the local logistic model coefficients.
type SecondaryModelConfig struct {
	Enabled      bool               `yaml:"enabled"`
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
}

// RoutingConfig overrides recipient groups and channels per level.
type RoutingConfig struct {
	Groups   map[string][]string `yaml:"groups"`
	Channels map[string][]string `yaml:"channels"`
}

// LocalizationConfig points at an optional translation directory.
type LocalizationConfig struct {
	CatalogDir string `yaml:"catalogDir"`
}

// SiteConfig registers a monitored site.
type SiteConfig struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Region    string   `yaml:"region"`
	Languages []string `yaml:"languages"`
	Latitude  float64  `yaml:"latitude"`
	Longitude float64  `yaml:"longitude"`
}

// MonitorConfig drives the polling loop.
type MonitorConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	FeedURL     string        `yaml:"feedUrl"`
	FeedTimeout time.Duration `yaml:"feedTimeout"`
	// SimulatedSeed drives the built-in feed when FeedURL is empty.
	SimulatedSeed int64 `yaml:"simulatedSeed"`
}

// HistoryConfig controls alert retention.
type HistoryConfig struct {
	Retention  time.Duration `yaml:"retention"`
	MaxPerSite int           `yaml:"maxPerSite"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ValkeyConfig contains connection information for the cache and queue.
type ValkeyConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	LatestTTL time.Duration `yaml:"latestTtl"`
	QueueKey  string        `yaml:"queueKey"`
}

// NATSConfig configures the alert publish transport.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// StorageConfig points at an S3-compatible bucket for the archive.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSsl"`
	// ArchiveMinLevel is the lowest risk level that gets archived.
	ArchiveMinLevel string `yaml:"archiveMinLevel"`
}

// NotifyConfig configures outbound alert delivery.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhookUrl"`
	Cooldown   time.Duration `yaml:"cooldown"`
	// Template overrides the text sent to webhook and NATS channels.
	Template string `yaml:"template"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.App.PublicURL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("THRESHOLDS_PATH"); v != "" {
		cfg.Risk.ThresholdsPath = v
	}
	if v := os.Getenv("RISK_HIGH_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.HighThreshold = parsed
		}
	}
	if v := os.Getenv("RISK_MEDIUM_THRESHOLD"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.MediumThreshold = parsed
		}
	}
	if v := os.Getenv("PRIMARY_MODEL_URL"); v != "" {
		cfg.Models.Primary.URL = v
	}
	if v := os.Getenv("PRIMARY_MODEL_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Models.Primary.Timeout = parsed
		}
	}
	if v := os.Getenv("MONITOR_ENABLED"); v != "" {
		cfg.Monitor.Enabled = parseBool(v)
	}
	if v := os.Getenv("MONITOR_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.Interval = parsed
		}
	}
	if v := os.Getenv("SENSOR_FEED_URL"); v != "" {
		cfg.Monitor.FeedURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
		cfg.Valkey.Enabled = true
	}
	if v := os.Getenv("VALKEY_PASSWORD"); v != "" {
		cfg.Valkey.Password = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}
	if v := os.Getenv("ALERT_COOLDOWN"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Notify.Cooldown = parsed
		}
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "rockwatch",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 150 * time.Millisecond,
				// Evaluations persist history and push notifications, so a replay duplicates both.
				Exclude: []string{
					"/api/v1/evaluations",
					"/api/v1/alerts/*/acknowledge",
					"/api/v1/alerts/*/resolve",
				},
			},
		},
		Auth: AuthConfig{
			Issuer:   "rockwatch",
			TokenTTL: 12 * time.Hour,
		},
		Risk: RiskConfig{
			HighThreshold:   0.7,
			MediumThreshold: 0.4,
			Confidence: ConfidenceConfig{
				CoveragePerSensor: 15,
				CoverageWeight:    0.5,
				AgreementWeight:   50,
				FallbackCeiling:   80,
			},
		},
		Models: ModelsConfig{
			Primary: PrimaryModelConfig{
				Timeout: 2 * time.Second,
				Breaker: BreakerConfig{
					MaxFailures: 3,
					OpenTimeout: 30 * time.Second,
				},
			},
			Secondary: SecondaryModelConfig{
				Enabled:   true,
				Intercept: -4.2,
				Coefficients: map[string]float64{
					"vibration":       0.55,
					"acoustic":        0.035,
					"slope_stability": 5.0,
					"displacement":    0.08,
					"crack_density":   0.6,
					"pore_pressure":   0.012,
					"rainfall":        0.01,
				},
			},
		},
		Monitor: MonitorConfig{
			Enabled:       true,
			Interval:      30 * time.Second,
			Concurrency:   4,
			FeedTimeout:   5 * time.Second,
			SimulatedSeed: 42,
		},
		History: HistoryConfig{
			Retention:  24 * time.Hour,
			MaxPerSite: 1000,
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Valkey: ValkeyConfig{
			LatestTTL: 24 * time.Hour,
			QueueKey:  "rockwatch:deliveries",
		},
		NATS: NATSConfig{
			Subject: "rockwatch.alerts",
		},
		Storage: StorageConfig{
			UseSSL:          true,
			Region:          "auto",
			ArchiveMinLevel: "MEDIUM",
		},
		Notify: NotifyConfig{
			Cooldown: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if !(c.Risk.MediumThreshold > 0 && c.Risk.MediumThreshold < c.Risk.HighThreshold && c.Risk.HighThreshold <= 1) {
		return errors.New("risk thresholds must satisfy 0 < mediumThreshold < highThreshold <= 1")
	}
	if c.Risk.Confidence.FallbackCeiling < 0 || c.Risk.Confidence.FallbackCeiling > 100 {
		return errors.New("risk.confidence.fallbackCeiling must be within [0,100]")
	}
	if c.Models.Primary.URL != "" && c.Models.Primary.Timeout <= 0 {
		return errors.New("models.primary.timeout must be positive")
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		return errors.New("monitor.interval must be positive")
	}
	if c.Monitor.Concurrency < 0 {
		return errors.New("monitor.concurrency cannot be negative")
	}
	seen := make(map[string]struct{}, len(c.Sites))
	for i, s := range c.Sites {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("sites[%d].id cannot be empty", i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("sites[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return errors.New("storage.bucket cannot be empty when storage.endpoint is set")
	}
	if c.Notify.Cooldown < 0 {
		return errors.New("notify.cooldown cannot be negative")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
