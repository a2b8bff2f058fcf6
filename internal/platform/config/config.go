package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	StoreDriver string
	PostgresDSN string
	SQLitePath  string
	RedisAddr   string
	SeedFile    string

	EventTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	ClaimPrimitiveEnabled bool
	PullClaimRPS          float64
	PullClaimBurst        int
	MetricsEnabled        bool
}

// Load reads configuration from the environment (SERVICE_NAME, HTTP_PORT,
// STORE_DRIVER, ...) and, when DISPATCH_CONFIG names a file, from that file
// first. Environment values win over file values.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("dispatch_config")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := Config{
		ServiceName: v.GetString("service_name"),
		HTTPPort:    v.GetString("http_port"),
		StoreDriver: strings.ToLower(strings.TrimSpace(v.GetString("store_driver"))),
		PostgresDSN: v.GetString("postgres_dsn"),
		SQLitePath:  v.GetString("sqlite_path"),
		RedisAddr:   v.GetString("redis_addr"),
		SeedFile:    v.GetString("seed_file"),

		EventTopic:         v.GetString("event_topic"),
		OutboxPollInterval: v.GetDuration("outbox_poll_interval"),
		OutboxBatchSize:    v.GetInt("outbox_batch_size"),

		ClaimPrimitiveEnabled: v.GetBool("claim_primitive_enabled"),
		PullClaimRPS:          v.GetFloat64("pull_claim_rps"),
		PullClaimBurst:        v.GetInt("pull_claim_burst"),
		MetricsEnabled:        v.GetBool("metrics_enabled"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "dispatch")
	v.SetDefault("http_port", "8080")
	v.SetDefault("store_driver", StoreDriverPostgres)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("sqlite_path", "data/dispatch.db")
	v.SetDefault("redis_addr", "")
	v.SetDefault("seed_file", "")
	v.SetDefault("event_topic", "service_request.claimed")
	v.SetDefault("outbox_poll_interval", 2*time.Second)
	v.SetDefault("outbox_batch_size", 100)
	v.SetDefault("claim_primitive_enabled", true)
	v.SetDefault("pull_claim_rps", 5.0)
	v.SetDefault("pull_claim_burst", 10)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("dispatch_config", "")
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverSQLite:
	case StoreDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("POSTGRES_DSN is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	return nil
}
