package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory   = "memory"
	StorePostgres = "postgres"

	RealtimeMemory = "memory"
	RealtimeRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	SMTP      SMTPConfig
	Notify    NotifyConfig
	Realtime  RealtimeConfig
	DueDate   DueDateConfig
	Export    ExportConfig
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Driver string
	Seed   bool
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig controls bearer-token verification on mutating routes.
type JWTConfig struct {
	Enabled       bool
	Secret        string
	Issuer        string
	ApproverRoles []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs rollup windows and snapshot caching.
type DashboardConfig struct {
	CacheEnabled       bool
	CacheTTL           time.Duration
	UpcomingWindowDays int
	MonthlyWindow      int
}

// SMTPConfig configures the outgoing mail transport.
type SMTPConfig struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	RatePerSecond float64
	Burst         int
}

// NotifyConfig tunes notification content and the optional operator channel.
type NotifyConfig struct {
	EmailSubject    string
	OperatorEmail   string
	OperatorSubject string
	// SendTimeout bounds one dispatch; zero leaves timing to the transport.
	SendTimeout    time.Duration
	TestEmailRate  float64
	TestEmailBurst int
}

// RealtimeConfig selects how notifications are pushed to live clients.
type RealtimeConfig struct {
	Driver        string
	Channel       string
	SubscriberBuf int
}

// DueDateConfig schedules the due-date reminder scan.
type DueDateConfig struct {
	Enabled    bool
	Cron       string
	Timezone   string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportConfig controls rendered amendment exports.
type ExportConfig struct {
	PDFFontPath string
	PDFTitle    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		Seed:   v.GetBool("STORE_SEED"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Enabled:       v.GetBool("AUTH_ENABLED"),
		Secret:        v.GetString("JWT_SECRET"),
		Issuer:        v.GetString("JWT_ISSUER"),
		ApproverRoles: splitAndTrim(v.GetString("JWT_APPROVER_ROLES")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled:       v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:           parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
		UpcomingWindowDays: v.GetInt("UPCOMING_WINDOW_DAYS"),
		MonthlyWindow:      v.GetInt("MONTHLY_WINDOW"),
	}

	cfg.SMTP = SMTPConfig{
		Enabled:       v.GetBool("ENABLE_SMTP"),
		Host:          v.GetString("SMTP_HOST"),
		Port:          v.GetInt("SMTP_PORT"),
		User:          v.GetString("SMTP_USER"),
		Password:      v.GetString("SMTP_PASSWORD"),
		From:          v.GetString("SMTP_FROM"),
		RatePerSecond: v.GetFloat64("SMTP_RATE_PER_SECOND"),
		Burst:         v.GetInt("SMTP_BURST"),
	}

	cfg.Notify = NotifyConfig{
		EmailSubject:    v.GetString("NOTIFY_EMAIL_SUBJECT"),
		OperatorEmail:   strings.TrimSpace(v.GetString("NOTIFY_OPERATOR_EMAIL")),
		OperatorSubject: v.GetString("NOTIFY_OPERATOR_SUBJECT"),
		SendTimeout:     parseDuration(v.GetString("NOTIFY_SEND_TIMEOUT"), 0),
		TestEmailRate:   v.GetFloat64("TEST_EMAIL_RATE_PER_SECOND"),
		TestEmailBurst:  v.GetInt("TEST_EMAIL_BURST"),
	}

	cfg.Realtime = RealtimeConfig{
		Driver:        strings.ToLower(v.GetString("REALTIME_DRIVER")),
		Channel:       v.GetString("REALTIME_CHANNEL"),
		SubscriberBuf: v.GetInt("REALTIME_SUBSCRIBER_BUFFER"),
	}

	cfg.DueDate = DueDateConfig{
		Enabled:    v.GetBool("ENABLE_DUE_DATE_SCAN"),
		Cron:       v.GetString("DUE_DATE_SCAN_CRON"),
		Timezone:   v.GetString("DUE_DATE_TIMEZONE"),
		Workers:    v.GetInt("DUE_DATE_WORKERS"),
		MaxRetries: v.GetInt("DUE_DATE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("DUE_DATE_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Export = ExportConfig{
		PDFFontPath: v.GetString("EXPORT_PDF_FONT"),
		PDFTitle:    v.GetString("EXPORT_PDF_TITLE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("STORE_SEED", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "law_monitoring")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_APPROVER_ROLES", "")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
	v.SetDefault("UPCOMING_WINDOW_DAYS", 30)
	v.SetDefault("MONTHLY_WINDOW", 6)

	v.SetDefault("ENABLE_SMTP", false)
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_RATE_PER_SECOND", 2)
	v.SetDefault("SMTP_BURST", 5)

	v.SetDefault("NOTIFY_EMAIL_SUBJECT", "법령 모니터링 알림")
	v.SetDefault("NOTIFY_OPERATOR_EMAIL", "")
	v.SetDefault("NOTIFY_OPERATOR_SUBJECT", "[법령 모니터링] 결재 완료 알림")
	v.SetDefault("TEST_EMAIL_RATE_PER_SECOND", 0.2)
	v.SetDefault("TEST_EMAIL_BURST", 3)

	v.SetDefault("REALTIME_DRIVER", RealtimeMemory)
	v.SetDefault("REALTIME_CHANNEL", "notifications")
	v.SetDefault("REALTIME_SUBSCRIBER_BUFFER", 16)

	v.SetDefault("ENABLE_DUE_DATE_SCAN", true)
	v.SetDefault("DUE_DATE_SCAN_CRON", "0 9 * * *")
	v.SetDefault("DUE_DATE_TIMEZONE", "Asia/Seoul")
	v.SetDefault("DUE_DATE_WORKERS", 1)
	v.SetDefault("DUE_DATE_MAX_RETRIES", 3)
	v.SetDefault("DUE_DATE_RETRY_DELAY", "30s")

	v.SetDefault("EXPORT_PDF_FONT", "")
	v.SetDefault("EXPORT_PDF_TITLE", "Law Amendments")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
