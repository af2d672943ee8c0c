package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

var defaultAlertLabels = []string{
	"Nenhum",
	"Roubo",
	"Licenciamento",
	"Renajud",
	"Envolvido na ocorrência",
	"Investigado",
}

type HTTPConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	AccessSecret string
}

type StationConfig struct {
	Token    string
	Timezone string
}

// AlertConfig is deployment data: label per alert type code (index = code)
// and the user groups that receive every alert in their city.
type AlertConfig struct {
	Labels          []string
	BroadcastGroups []string
}

type NotifyConfig struct {
	Workers      int
	QueueSize    int
	Timeout      time.Duration
	URLs         []string
	KafkaBrokers string
	KafkaTopic   string
}

type RealtimeConfig struct {
	NATSURL       string
	SubjectPrefix string
}

type SentryConfig struct {
	DSN string
}

type CacheConfig struct {
	ReferenceTTL time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Station     StationConfig
	Alerts      AlertConfig
	Notify      NotifyConfig
	Realtime    RealtimeConfig
	Sentry      SentryConfig
	Cache       CacheConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			RequestTimeout: v.GetDuration("HTTP_REQUEST_TIMEOUT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Station: StationConfig{
			Token:    v.GetString("STATION_TOKEN"),
			Timezone: v.GetString("STATION_TIMEZONE"),
		},
		Alerts: AlertConfig{
			Labels:          splitList(v.GetString("ALERT_LABELS")),
			BroadcastGroups: splitList(v.GetString("ALERT_BROADCAST_GROUPS")),
		},
		Notify: NotifyConfig{
			Workers:      v.GetInt("NOTIFY_WORKERS"),
			QueueSize:    v.GetInt("NOTIFY_QUEUE_SIZE"),
			Timeout:      v.GetDuration("NOTIFY_TIMEOUT"),
			URLs:         splitList(v.GetString("NOTIFY_URLS")),
			KafkaBrokers: v.GetString("NOTIFY_KAFKA_BROKERS"),
			KafkaTopic:   v.GetString("NOTIFY_KAFKA_TOPIC"),
		},
		Realtime: RealtimeConfig{
			NATSURL:       v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Sentry: SentryConfig{
			DSN: v.GetString("SENTRY_DSN"),
		},
		Cache: CacheConfig{
			ReferenceTTL: v.GetDuration("REFERENCE_CACHE_TTL"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Station.Timezone == "" {
		cfg.Station.Timezone = "America/Sao_Paulo"
	}
	if len(cfg.Alerts.Labels) == 0 {
		cfg.Alerts.Labels = append([]string(nil), defaultAlertLabels...)
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = 256
	}
	if cfg.Notify.Timeout == 0 {
		cfg.Notify.Timeout = 30 * time.Second
	}
	if cfg.Notify.KafkaTopic == "" {
		cfg.Notify.KafkaTopic = "lpr.alert-jobs"
	}
	if cfg.Realtime.SubjectPrefix == "" {
		cfg.Realtime.SubjectPrefix = "lpr"
	}
	if cfg.Cache.ReferenceTTL == 0 {
		cfg.Cache.ReferenceTTL = 5 * time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Station.Token == "" {
		return fmt.Errorf("STATION_TOKEN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if len(cfg.Alerts.Labels) != len(defaultAlertLabels) {
		return fmt.Errorf("ALERT_LABELS must list %d labels, got %d", len(defaultAlertLabels), len(cfg.Alerts.Labels))
	}
	if _, err := time.LoadLocation(cfg.Station.Timezone); err != nil {
		return fmt.Errorf("STATION_TIMEZONE is invalid: %w", err)
	}
	return nil
}

// Location returns the zone station clocks report in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Station.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
