package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process level configuration so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string
	// APIKeyHashes maps service caller names to bcrypt hashes of their API
	// keys, parsed from API_KEY_HASHES as "caller:hash" pairs. Empty means
	// API-key auth is disabled.
	APIKeyHashes map[string]string

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Ledger   LedgerConfig
	Bulk     BulkConfig
	Notify   NotifyConfig
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	DSN string
}

// RedisConfig holds cache connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit outbox relay settings. Empty brokers disable the relay.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// LedgerConfig holds the best-effort proof recorder settings.
type LedgerConfig struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// BulkConfig holds coordinator defaults. InterBatchDelay throttles load on the
// rate-limited ledger and evidence collaborators.
type BulkConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
	InterBatchDelay  time.Duration
}

// NotifyConfig holds the outbound notification channel settings. Empty URLs
// disable the corresponding channel. An empty SMTPAddr leaves the email
// channel on the log stub.
type NotifyConfig struct {
	EmailFrom       string
	EmailTo         string
	SMTPAddr        string
	SMTPUsername    string
	SMTPPassword    string
	SlackWebhookURL string
	TeamsWebhookURL string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("ECOTRACE_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		APIKeyHashes:  parseKeyValuePairs(os.Getenv("API_KEY_HASHES")),
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "ecotrace.audit.events"),
		},
		Ledger: LedgerConfig{
			Enabled:  os.Getenv("LEDGER_ENABLED") == "true",
			Endpoint: os.Getenv("LEDGER_ENDPOINT"),
			APIKey:   os.Getenv("LEDGER_API_KEY"),
			Timeout:  envDuration("LEDGER_TIMEOUT", 10*time.Second),
		},
		Bulk: BulkConfig{
			DefaultBatchSize: envInt("BULK_DEFAULT_BATCH_SIZE", 50),
			MaxBatchSize:     envInt("BULK_MAX_BATCH_SIZE", 500),
			InterBatchDelay:  envDuration("BULK_INTER_BATCH_DELAY", time.Second),
		},
		Notify: NotifyConfig{
			EmailFrom:       os.Getenv("NOTIFY_EMAIL_FROM"),
			EmailTo:         os.Getenv("NOTIFY_EMAIL_TO"),
			SMTPAddr:        os.Getenv("NOTIFY_SMTP_ADDR"),
			SMTPUsername:    os.Getenv("NOTIFY_SMTP_USERNAME"),
			SMTPPassword:    os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SlackWebhookURL: os.Getenv("NOTIFY_SLACK_WEBHOOK_URL"),
			TeamsWebhookURL: os.Getenv("NOTIFY_TEAMS_WEBHOOK_URL"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// parseKeyValuePairs parses "name:value" pairs separated by commas. bcrypt
// hashes never contain ':' or ',', so no escaping is needed.
func parseKeyValuePairs(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitNonEmpty(s) {
		name, value, ok := strings.Cut(part, ":")
		if !ok || name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
