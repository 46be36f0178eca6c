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
	Labs         LabsConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Labs.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LABSTOCK_APP_ENV" required:"true"`
	Port         string `envconfig:"LABSTOCK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LABSTOCK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LABSTOCK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LABSTOCK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LABSTOCK_DB_DSN"`
	Driver string `envconfig:"LABSTOCK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LABSTOCK_DB_HOST"`
	LegacyPort     int    `envconfig:"LABSTOCK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LABSTOCK_DB_USER"`
	LegacyPassword string `envconfig:"LABSTOCK_DB_PASSWORD"`
	LegacyName     string `envconfig:"LABSTOCK_DB_NAME"`
	LegacySSLMode  string `envconfig:"LABSTOCK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LABSTOCK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LABSTOCK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LABSTOCK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LABSTOCK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LABSTOCK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LABSTOCK_REDIS_ADDR"`
	Password     string        `envconfig:"LABSTOCK_REDIS_PASSWORD"`
	DB           int           `envconfig:"LABSTOCK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LABSTOCK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LABSTOCK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LABSTOCK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LABSTOCK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LABSTOCK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LABSTOCK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LABSTOCK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LABSTOCK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// LabsConfig enumerates the lab locations the engine serves.
type LabsConfig struct {
	IDs []string `envconfig:"LABSTOCK_LAB_IDS" default:"LAB01,LAB02,LAB03,LAB04,LAB05,LAB06,LAB07,LAB08"`
}

func (l LabsConfig) validate() error {
	if len(l.IDs) == 0 {
		return fmt.Errorf("%s must list at least one lab", EnvLabIDs)
	}
	seen := make(map[string]struct{}, len(l.IDs))
	for _, id := range l.IDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%s contains an empty lab id", EnvLabIDs)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%s lists lab %q twice", EnvLabIDs, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Contains reports whether the given lab id is configured.
func (l LabsConfig) Contains(labID string) bool {
	for _, id := range l.IDs {
		if id == labID {
			return true
		}
	}
	return false
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LABSTOCK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LABSTOCK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"LABSTOCK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LABSTOCK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LABSTOCK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LABSTOCK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventsTopic        string `envconfig:"LABSTOCK_PUBSUB_EVENTS_TOPIC" default:"labstock-events"`
	EventsSubscription string `envconfig:"LABSTOCK_PUBSUB_EVENTS_SUBSCRIPTION" default:"labstock-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LABSTOCK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LABSTOCK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LABSTOCK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LABSTOCK_CORS_ALLOWED_ORIGINS" default:"*"`
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
