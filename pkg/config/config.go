package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
)

const (
	EnvPrefix = "TAPCARDS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "TAPCARDS_APP_ENV"
	EnvPort      = "TAPCARDS_APP_PORT"
	EnvDBDSN     = "TAPCARDS_DB_DSN"
	EnvDBHost    = "TAPCARDS_DB_HOST"
	EnvDBUser    = "TAPCARDS_DB_USER"
	EnvDBName    = "TAPCARDS_DB_NAME"
	EnvRedisURL  = "TAPCARDS_REDIS_URL"
	EnvJWTSecret = "TAPCARDS_JWT_SECRET"
	EnvJWTIssuer = "TAPCARDS_JWT_ISSUER"
	EnvJWTExpMin = "TAPCARDS_JWT_EXPIRATION_MINUTES"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
	StorageDriverGCS   = "gcs"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Storage      StorageConfig
	AWS          AWSConfig
	GCS          GCSConfig
	Uploads      UploadsConfig
	Catalog      CatalogConfig
	Cron         CronConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(cfg.AWS, cfg.GCS); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TAPCARDS_APP_ENV" required:"true"`
	Port         string `envconfig:"TAPCARDS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TAPCARDS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"TAPCARDS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"TAPCARDS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TAPCARDS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"TAPCARDS_DB_DSN"`
	SQLitePath string `envconfig:"TAPCARDS_SQLITE_PATH" default:"tapcards.db"`

	LegacyHost     string `envconfig:"TAPCARDS_DB_HOST"`
	LegacyPort     int    `envconfig:"TAPCARDS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TAPCARDS_DB_USER"`
	LegacyPassword string `envconfig:"TAPCARDS_DB_PASSWORD"`
	LegacyName     string `envconfig:"TAPCARDS_DB_NAME"`
	LegacySSLMode  string `envconfig:"TAPCARDS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TAPCARDS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TAPCARDS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TAPCARDS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TAPCARDS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TAPCARDS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TAPCARDS_REDIS_ADDR"`
	Password     string        `envconfig:"TAPCARDS_REDIS_PASSWORD"`
	DB           int           `envconfig:"TAPCARDS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TAPCARDS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TAPCARDS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TAPCARDS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TAPCARDS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TAPCARDS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TAPCARDS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TAPCARDS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TAPCARDS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"TAPCARDS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TAPCARDS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TAPCARDS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TAPCARDS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TAPCARDS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TAPCARDS_ARGON_KEY_LEN" default:"32"`
}

// RateLimitConfig holds fixed-window budgets per client IP.
type RateLimitConfig struct {
	LoginWindow       time.Duration `envconfig:"TAPCARDS_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginLimit        int           `envconfig:"TAPCARDS_RATE_LIMIT_LOGIN_LIMIT" default:"10"`
	RegisterWindow    time.Duration `envconfig:"TAPCARDS_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterLimit     int           `envconfig:"TAPCARDS_RATE_LIMIT_REGISTER_LIMIT" default:"5"`
	OrderCreateWindow time.Duration `envconfig:"TAPCARDS_RATE_LIMIT_ORDER_WINDOW" default:"10m"`
	OrderCreateLimit  int           `envconfig:"TAPCARDS_RATE_LIMIT_ORDER_LIMIT" default:"10"`
	ProofUploadWindow time.Duration `envconfig:"TAPCARDS_RATE_LIMIT_PROOF_WINDOW" default:"10m"`
	ProofUploadLimit  int           `envconfig:"TAPCARDS_RATE_LIMIT_PROOF_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TAPCARDS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TAPCARDS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"TAPCARDS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TAPCARDS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TAPCARDS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TAPCARDS_GOOGLE_APPLICATION_CREDENTIALS"`
}

// ClientOptions picks inline credentials, then a credentials file, then the default chain.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(g.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(g.CredentialsJSON)))
	case strings.TrimSpace(g.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(g.ApplicationCredentials))
	}
	return opts
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"TAPCARDS_PUBSUB_ORDERS_TOPIC" default:"tc-order-events"`
	OrdersSubscription       string `envconfig:"TAPCARDS_PUBSUB_ORDERS_SUBSCRIPTION" default:"tc-order-events-sub"`
	NotificationTopic        string `envconfig:"TAPCARDS_PUBSUB_NOTIFICATION_TOPIC" default:"tc-notification-events"`
	NotificationSubscription string `envconfig:"TAPCARDS_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"tc-notification-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TAPCARDS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TAPCARDS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TAPCARDS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// StorageConfig selects where uploaded files are persisted.
type StorageConfig struct {
	Driver        string        `envconfig:"TAPCARDS_STORAGE_DRIVER" default:"local"`
	LocalDir      string        `envconfig:"TAPCARDS_STORAGE_LOCAL_DIR" default:"storage/uploads"`
	PublicBaseURL string        `envconfig:"TAPCARDS_STORAGE_PUBLIC_BASE_URL" default:"/uploads"`
	SignedURLTTL  time.Duration `envconfig:"TAPCARDS_STORAGE_SIGNED_URL_TTL" default:"15m"`
}

func (s StorageConfig) validate(aws AWSConfig, gcs GCSConfig) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverLocal:
		if strings.TrimSpace(s.LocalDir) == "" {
			return fmt.Errorf("TAPCARDS_STORAGE_LOCAL_DIR is required for local storage")
		}
		return nil
	case StorageDriverS3:
		if aws.Bucket == "" || aws.Region == "" {
			return fmt.Errorf("TAPCARDS_AWS_BUCKET and TAPCARDS_AWS_REGION are required for s3 storage")
		}
		return nil
	case StorageDriverGCS:
		if strings.TrimSpace(gcs.Bucket) == "" {
			return fmt.Errorf("TAPCARDS_GCS_BUCKET is required for gcs storage")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
}

type AWSConfig struct {
	Region          string `envconfig:"TAPCARDS_AWS_REGION"`
	AccessKeyID     string `envconfig:"TAPCARDS_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"TAPCARDS_AWS_SECRET_ACCESS_KEY"`
	Bucket          string `envconfig:"TAPCARDS_AWS_BUCKET"`
	Endpoint        string `envconfig:"TAPCARDS_AWS_ENDPOINT"`
	UsePathStyle    bool   `envconfig:"TAPCARDS_AWS_USE_PATH_STYLE" default:"false"`
}

type GCSConfig struct {
	Bucket string `envconfig:"TAPCARDS_GCS_BUCKET"`
}

// UploadsConfig caps accepted file sizes by family.
type UploadsConfig struct {
	ImageMaxMB    int `envconfig:"TAPCARDS_UPLOAD_IMAGE_MAX_MB" default:"5"`
	DocumentMaxMB int `envconfig:"TAPCARDS_UPLOAD_DOCUMENT_MAX_MB" default:"10"`
}

func (u UploadsConfig) ImageMaxBytes() int64 {
	return int64(u.ImageMaxMB) << 20
}

func (u UploadsConfig) DocumentMaxBytes() int64 {
	return int64(u.DocumentMaxMB) << 20
}

type CatalogConfig struct {
	DefaultLocale string `envconfig:"TAPCARDS_DEFAULT_LOCALE" default:"fr"`
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"TAPCARDS_CRON_INTERVAL" default:"1h"`
	PaymentReminderAfter time.Duration `envconfig:"TAPCARDS_CRON_PAYMENT_REMINDER_AFTER" default:"48h"`
	OutboxRetentionDays  int           `envconfig:"TAPCARDS_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	InboxRetentionDays   int           `envconfig:"TAPCARDS_CRON_INBOX_RETENTION_DAYS" default:"90"`
	ReminderBatchSize    int           `envconfig:"TAPCARDS_CRON_REMINDER_BATCH_SIZE" default:"100"`
	LockTTL              time.Duration `envconfig:"TAPCARDS_CRON_LOCK_TTL" default:"10m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TAPCARDS_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
