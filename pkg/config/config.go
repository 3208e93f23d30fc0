package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	DashScope    DashScopeConfig
	PubSub       PubSubConfig
	Pipeline     PipelineConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MUSEBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"MUSEBOX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MUSEBOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MUSEBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MUSEBOX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MUSEBOX_DB_DSN"`
	Driver string `envconfig:"MUSEBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MUSEBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"MUSEBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MUSEBOX_DB_USER"`
	LegacyPassword string `envconfig:"MUSEBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"MUSEBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"MUSEBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MUSEBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MUSEBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MUSEBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MUSEBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MUSEBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MUSEBOX_REDIS_ADDR"`
	Password     string        `envconfig:"MUSEBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"MUSEBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MUSEBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MUSEBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MUSEBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MUSEBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MUSEBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool   `envconfig:"MUSEBOX_USE_SQLITE" default:"false"`
	AutoMigrate   bool   `envconfig:"MUSEBOX_AUTO_MIGRATE" default:"false"`
	GCSAccessMode string `envconfig:"MUSEBOX_GCS_ACCESS_MODE" default:"public"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MUSEBOX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MUSEBOX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MUSEBOX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"MUSEBOX_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"MUSEBOX_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type DashScopeConfig struct {
	APIKey       string        `envconfig:"MUSEBOX_DASHSCOPE_API_KEY" required:"true"`
	BaseURL      string        `envconfig:"MUSEBOX_DASHSCOPE_BASE_URL"`
	ImageModel   string        `envconfig:"MUSEBOX_DASHSCOPE_IMAGE_MODEL" default:"wanx2.1-t2i-turbo"`
	TextModel    string        `envconfig:"MUSEBOX_DASHSCOPE_TEXT_MODEL" default:"qwen-plus"`
	VideoModel   string        `envconfig:"MUSEBOX_DASHSCOPE_VIDEO_MODEL" default:"wanx2.1-i2v-turbo"`
	HTTPTimeout  time.Duration `envconfig:"MUSEBOX_DASHSCOPE_HTTP_TIMEOUT" default:"60s"`
	PollInterval time.Duration `envconfig:"MUSEBOX_DASHSCOPE_POLL_INTERVAL" default:"5s"`
	PollTimeout  time.Duration `envconfig:"MUSEBOX_DASHSCOPE_POLL_TIMEOUT" default:"300s"`
}

type PubSubConfig struct {
	GenerationTopic        string `envconfig:"MUSEBOX_PUBSUB_GENERATION_TOPIC" default:"mb-generation-tasks"`
	GenerationSubscription string `envconfig:"MUSEBOX_PUBSUB_GENERATION_SUBSCRIPTION" required:"true"`
}

type PipelineConfig struct {
	MaxAttempts    int           `envconfig:"MUSEBOX_PIPELINE_MAX_ATTEMPTS" default:"3"`
	BackoffStep    time.Duration `envconfig:"MUSEBOX_PIPELINE_BACKOFF_STEP" default:"60s"`
	ClaimLeaseTTL  time.Duration `envconfig:"MUSEBOX_PIPELINE_CLAIM_LEASE_TTL" default:"10m"`
	StaleTaskAfter time.Duration `envconfig:"MUSEBOX_PIPELINE_STALE_TASK_AFTER" default:"30m"`
}

type RateLimitConfig struct {
	UsageWindow  time.Duration `envconfig:"MUSEBOX_RATE_LIMIT_USAGE_WINDOW" default:"1m"`
	UsageIPLimit int           `envconfig:"MUSEBOX_RATE_LIMIT_USAGE_IP_LIMIT" default:"60"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MUSEBOX_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"MUSEBOX_CRON_LOCK_TTL" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
