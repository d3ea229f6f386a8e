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
	JWT          JWTConfig
	Cron         CronConfig
	Square       SquareConfig
	Gemini       GeminiConfig
	Sendgrid     SendgridConfig
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
	Env          string `envconfig:"TAVERNBUDDY_APP_ENV" required:"true"`
	Port         string `envconfig:"TAVERNBUDDY_APP_PORT" default:"8080"`
	URL          string `envconfig:"TAVERNBUDDY_APP_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"TAVERNBUDDY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TAVERNBUDDY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TAVERNBUDDY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TAVERNBUDDY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"TAVERNBUDDY_DB_DSN"`

	LegacyHost     string `envconfig:"TAVERNBUDDY_DB_HOST"`
	LegacyPort     int    `envconfig:"TAVERNBUDDY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAVERNBUDDY_DB_USER"`
	LegacyPassword string `envconfig:"TAVERNBUDDY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAVERNBUDDY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAVERNBUDDY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAVERNBUDDY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAVERNBUDDY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAVERNBUDDY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAVERNBUDDY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAVERNBUDDY_REDIS_URL"`
	Address      string        `envconfig:"TAVERNBUDDY_REDIS_ADDR"`
	Password     string        `envconfig:"TAVERNBUDDY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAVERNBUDDY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAVERNBUDDY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAVERNBUDDY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAVERNBUDDY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAVERNBUDDY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAVERNBUDDY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies sessions issued by the identity provider and signs OAuth state.
type JWTConfig struct {
	Secret            string `envconfig:"TAVERNBUDDY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TAVERNBUDDY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TAVERNBUDDY_JWT_EXPIRATION_MINUTES" default:"60"`
	StateTTLMinutes   int    `envconfig:"TAVERNBUDDY_OAUTH_STATE_TTL_MINUTES" default:"10"`
}

// StateTTL returns how long an OAuth state parameter stays valid.
func (j JWTConfig) StateTTL() time.Duration {
	if j.StateTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(j.StateTTLMinutes) * time.Minute
}

type CronConfig struct {
	Secret          string        `envconfig:"TAVERNBUDDY_CRON_SECRET" required:"true"`
	SyncConcurrency int           `envconfig:"TAVERNBUDDY_CRON_SYNC_CONCURRENCY" default:"-1"`
	LockTTL         time.Duration `envconfig:"TAVERNBUDDY_CRON_LOCK_TTL" default:"2h"`
}

type SquareConfig struct {
	ApplicationID      string `envconfig:"TAVERNBUDDY_SQUARE_APPLICATION_ID"`
	ApplicationSecret  string `envconfig:"TAVERNBUDDY_SQUARE_APPLICATION_SECRET"`
	Env                string `envconfig:"TAVERNBUDDY_SQUARE_ENV" default:"sandbox"`
	BaseURL            string `envconfig:"TAVERNBUDDY_SQUARE_BASE_URL"`
	APIVersion         string `envconfig:"TAVERNBUDDY_SQUARE_API_VERSION" default:"2024-01-17"`
	RedirectURL        string `envconfig:"TAVERNBUDDY_SQUARE_REDIRECT_URL"`
	TokenEncryptionKey string `envconfig:"TAVERNBUDDY_SQUARE_TOKEN_ENCRYPTION_KEY"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GeminiConfig struct {
	APIKey string `envconfig:"TAVERNBUDDY_GEMINI_API_KEY"`
	Model  string `envconfig:"TAVERNBUDDY_GEMINI_MODEL" default:"gemini-2.5-flash"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"TAVERNBUDDY_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"TAVERNBUDDY_SENDGRID_FROM_EMAIL" default:"reports@tavernbuddy.com"`
	FromName    string `envconfig:"TAVERNBUDDY_SENDGRID_FROM_NAME" default:"Tavernbuddy"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TAVERNBUDDY_AUTO_MIGRATE" default:"false"`
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
