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
	InternalAuth InternalAuthConfig
	CaptureLimit CaptureRateLimitConfig
	Automation   AutomationConfig
	Mailer       MailerConfig
	Worker       WorkerConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"OMFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"OMFLOW_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"OMFLOW_APP_BASE_URL" default:"https://app.omflow.studio"`
	LogLevel     string `envconfig:"OMFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OMFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"OMFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"OMFLOW_DB_DSN"`
	Driver string `envconfig:"OMFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OMFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"OMFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OMFLOW_DB_USER"`
	LegacyPassword string `envconfig:"OMFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"OMFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"OMFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OMFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OMFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OMFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OMFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OMFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OMFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"OMFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"OMFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OMFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OMFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OMFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OMFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OMFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// InternalAuthConfig guards the internal automation endpoints. The external
// scheduler that triggers dispatch cycles presents this token as a bearer
// credential, and so do the booking/lead-capture services.
type InternalAuthConfig struct {
	Token string `envconfig:"OMFLOW_INTERNAL_API_TOKEN" required:"true"`
}

type CaptureRateLimitConfig struct {
	Window     time.Duration `envconfig:"OMFLOW_CAPTURE_RATE_LIMIT_WINDOW" default:"1m"`
	EmailLimit int           `envconfig:"OMFLOW_CAPTURE_RATE_LIMIT_EMAIL_LIMIT" default:"5"`
	IPLimit    int           `envconfig:"OMFLOW_CAPTURE_RATE_LIMIT_IP_LIMIT" default:"20"`
}

// AutomationConfig tunes the lifecycle email engine. Enabled is the kill
// switch: when false the dispatcher cancels due jobs instead of sending.
type AutomationConfig struct {
	Enabled bool `envconfig:"OMFLOW_AUTOMATION_ENABLED" default:"true"`

	DispatchBatchSize int `envconfig:"OMFLOW_AUTOMATION_DISPATCH_BATCH_SIZE" default:"10"`

	BaseSendLimit    int           `envconfig:"OMFLOW_AUTOMATION_BASE_SEND_LIMIT" default:"1"`
	EngagedSendLimit int           `envconfig:"OMFLOW_AUTOMATION_ENGAGED_SEND_LIMIT" default:"3"`
	SendWindow       time.Duration `envconfig:"OMFLOW_AUTOMATION_SEND_WINDOW" default:"168h"`
	ClickWindow      time.Duration `envconfig:"OMFLOW_AUTOMATION_CLICK_WINDOW" default:"168h"`
	BookingWindow    time.Duration `envconfig:"OMFLOW_AUTOMATION_BOOKING_WINDOW" default:"720h"`

	ClaimTTL    time.Duration `envconfig:"OMFLOW_AUTOMATION_CLAIM_TTL" default:"10m"`
	MaxAttempts int           `envconfig:"OMFLOW_AUTOMATION_MAX_ATTEMPTS" default:"5"`
	BackoffBase time.Duration `envconfig:"OMFLOW_AUTOMATION_BACKOFF_BASE" default:"10m"`
	BackoffCap  time.Duration `envconfig:"OMFLOW_AUTOMATION_BACKOFF_CAP" default:"24h"`

	NudgeLeadTime    time.Duration `envconfig:"OMFLOW_AUTOMATION_NUDGE_LEAD_TIME" default:"48h"`
	OfferingLookback time.Duration `envconfig:"OMFLOW_AUTOMATION_OFFERING_LOOKBACK" default:"24h"`
	AttendeeLookback time.Duration `envconfig:"OMFLOW_AUTOMATION_ATTENDEE_LOOKBACK" default:"336h"`

	EventRetentionDays int `envconfig:"OMFLOW_AUTOMATION_EVENT_RETENTION_DAYS" default:"180"`
	JobRetentionDays   int `envconfig:"OMFLOW_AUTOMATION_JOB_RETENTION_DAYS" default:"90"`
}

type MailerConfig struct {
	APIURL  string        `envconfig:"OMFLOW_MAILER_API_URL" default:"https://api.sendgrid.com/v3/mail/send"`
	APIKey  string        `envconfig:"OMFLOW_MAILER_API_KEY" required:"true"`
	From    string        `envconfig:"OMFLOW_MAILER_FROM" default:"hello@omflow.studio"`
	Timeout time.Duration `envconfig:"OMFLOW_MAILER_TIMEOUT" default:"15s"`
}

type WorkerConfig struct {
	Interval time.Duration `envconfig:"OMFLOW_WORKER_INTERVAL" default:"10m"`
	LockTTL  time.Duration `envconfig:"OMFLOW_WORKER_LOCK_TTL" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OMFLOW_FEATURE_AUTO_MIGRATE" default:"false"`
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
