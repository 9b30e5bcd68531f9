// Package config lê a configuração do processo uma única vez na partida,
// a partir de variáveis de ambiente (e flags ligadas ao mesmo viper).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"rental-backend/middleware/ratelimit/domain"
)

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration

	DatabaseURL string
	TableName   string

	Redis     RedisConfig
	JWT       JWTConfig
	Rate      RateConfig
	Bulk      BulkConfig
	Notify    NotifyConfig
	Documents DocumentsConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type RateConfig struct {
	FailurePolicy      domain.FailurePolicy
	KeyPrefix          string
	EdgeEnabled        bool
	EdgeRPS            float64
	EdgeBurst          int
	TrustXFF           bool
	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration
	StatsEnabled       bool
	StatsPrefix        string
	StatsTTL           time.Duration
}

type BulkConfig struct {
	StoreConcurrency  int
	NotifyConcurrency int
}

type NotifyConfig struct {
	URL string
	RPS float64
}

type DocumentsConfig struct {
	Bucket     string
	BaseURL    string
	SigningKey string
	LinkTTL    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
	ServiceName  string
}

// SetDefaults registra os valores padrão no viper informado.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("database_url", "")
	v.SetDefault("table_name", "rental")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "")

	v.SetDefault("rate_failure_policy", "open")
	v.SetDefault("rate_key_prefix", "quota")
	v.SetDefault("edge_rate_enabled", true)
	v.SetDefault("edge_rate_rps", 20.0)
	v.SetDefault("edge_rate_burst", 40)
	v.SetDefault("trust_xff", false)
	v.SetDefault("concurrency_max", 200)
	v.SetDefault("concurrency_timeout", "0s")
	v.SetDefault("rate_stats_enabled", false)
	v.SetDefault("rate_stats_prefix", "ratestats")
	v.SetDefault("rate_stats_ttl", "48h")

	v.SetDefault("bulk_store_concurrency", 25)
	v.SetDefault("bulk_notify_concurrency", 10)

	v.SetDefault("notify_url", "")
	v.SetDefault("notify_rps", 10.0)

	v.SetDefault("documents_bucket", "kyc-documents")
	v.SetDefault("documents_base_url", "http://localhost:9000")
	v.SetDefault("documents_signing_key", "")
	v.SetDefault("documents_link_ttl", "15m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_insecure", false)
	v.SetDefault("service_name", "rental-admin")
}

// New cria um viper com defaults e leitura automática do ambiente
// (chave listen_addr <- LISTEN_ADDR).
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load monta e valida a configuração. Erro aqui aborta a partida.
func Load(v *viper.Viper) (Config, error) {
	policy, err := domain.ParseFailurePolicy(v.GetString("rate_failure_policy"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		ListenAddr:      v.GetString("listen_addr"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		DatabaseURL:     v.GetString("database_url"),
		TableName:       v.GetString("table_name"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			Issuer: v.GetString("jwt_issuer"),
		},
		Rate: RateConfig{
			FailurePolicy:      policy,
			KeyPrefix:          v.GetString("rate_key_prefix"),
			EdgeEnabled:        v.GetBool("edge_rate_enabled"),
			EdgeRPS:            v.GetFloat64("edge_rate_rps"),
			EdgeBurst:          v.GetInt("edge_rate_burst"),
			TrustXFF:           v.GetBool("trust_xff"),
			ConcurrencyMax:     v.GetInt("concurrency_max"),
			ConcurrencyTimeout: v.GetDuration("concurrency_timeout"),
			StatsEnabled:       v.GetBool("rate_stats_enabled"),
			StatsPrefix:        v.GetString("rate_stats_prefix"),
			StatsTTL:           v.GetDuration("rate_stats_ttl"),
		},
		Bulk: BulkConfig{
			StoreConcurrency:  v.GetInt("bulk_store_concurrency"),
			NotifyConcurrency: v.GetInt("bulk_notify_concurrency"),
		},
		Notify: NotifyConfig{
			URL: v.GetString("notify_url"),
			RPS: v.GetFloat64("notify_rps"),
		},
		Documents: DocumentsConfig{
			Bucket:     v.GetString("documents_bucket"),
			BaseURL:    v.GetString("documents_base_url"),
			SigningKey: v.GetString("documents_signing_key"),
			LinkTTL:    v.GetDuration("documents_link_ttl"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log_level")),
			Format: strings.ToLower(v.GetString("log_format")),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("otel_exporter_otlp_endpoint"),
			Insecure:     v.GetBool("otel_exporter_otlp_insecure"),
			ServiceName:  v.GetString("service_name"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate junta todos os problemas numa única mensagem.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is required"))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if strings.TrimSpace(c.Documents.SigningKey) == "" {
		errs = append(errs, errors.New("DOCUMENTS_SIGNING_KEY is required"))
	}
	if c.Documents.LinkTTL <= 0 {
		errs = append(errs, errors.New("DOCUMENTS_LINK_TTL must be positive"))
	}
	if c.Rate.EdgeEnabled && (c.Rate.EdgeRPS <= 0 || c.Rate.EdgeBurst <= 0) {
		errs = append(errs, errors.New("EDGE_RATE_RPS and EDGE_RATE_BURST must be positive"))
	}
	if c.Rate.ConcurrencyMax < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must not be negative"))
	}
	if c.Bulk.StoreConcurrency <= 0 || c.Bulk.NotifyConcurrency <= 0 {
		errs = append(errs, errors.New("BULK_STORE_CONCURRENCY and BULK_NOTIFY_CONCURRENCY must be positive"))
	}
	if c.Notify.URL != "" && c.Notify.RPS <= 0 {
		errs = append(errs, errors.New("NOTIFY_RPS must be positive"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
