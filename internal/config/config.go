package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName     string
	CoreDatabaseURL string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	MigrationsDir   string

	TemporalNamespace     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	// JWTSecret signs the bearer tokens accepted by the vault API.
	JWTSecret string
	JWTIssuer string
	// SchedulerToken guards the internal scheduled-backup endpoint.
	SchedulerToken string

	VaultBucket     string
	VaultS3Endpoint string
	VaultS3Region   string
	VaultAccessKey  string
	VaultSecretKey  string

	VaultRetention            int
	VaultStaleAfter           time.Duration
	VaultSchedulerConcurrency int
	VaultBackupCron           string
	VaultSweepCron            string
	VaultModulesFile          string
	VaultDestructiveRestore   bool

	AuditLogRetentionDays int
	AuditLogCleanupCron   string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:     getEnv("SERVICE_NAME", ""),
		CoreDatabaseURL: getEnv("CORE_DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ":9090"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "migrations/core"),

		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "agency"),
		SchedulerToken: getEnv("SCHEDULER_TOKEN", ""),

		VaultBucket:     getEnv("VAULT_BUCKET", ""),
		VaultS3Endpoint: getEnv("VAULT_S3_ENDPOINT", ""),
		VaultS3Region:   getEnv("VAULT_S3_REGION", "us-east-1"),
		VaultAccessKey:  getEnv("VAULT_S3_ACCESS_KEY", ""),
		VaultSecretKey:  getEnv("VAULT_S3_SECRET_KEY", ""),

		VaultBackupCron:  getEnv("VAULT_BACKUP_CRON", "0 1 * * *"),
		VaultSweepCron:   getEnv("VAULT_SWEEP_CRON", "*/15 * * * *"),
		VaultModulesFile: getEnv("VAULT_MODULES_FILE", ""),

		AuditLogCleanupCron: getEnv("AUDIT_LOG_CLEANUP_CRON", "0 4 * * *"),
	}

	var err error
	if cfg.VaultRetention, err = getEnvInt("VAULT_RETENTION", 5); err != nil {
		return nil, err
	}
	if cfg.VaultSchedulerConcurrency, err = getEnvInt("VAULT_SCHEDULER_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.VaultStaleAfter, err = getEnvDuration("VAULT_STALE_AFTER", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.VaultDestructiveRestore, err = getEnvBool("VAULT_DESTRUCTIVE_RESTORE", false); err != nil {
		return nil, err
	}
	if cfg.AuditLogRetentionDays, err = getEnvInt("AUDIT_LOG_RETENTION_DAYS", 90); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the variables the given service needs are set.
func (c *Config) Validate(service string) error {
	var missing []string
	require := func(value, name string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch service {
	case "vault-api":
		require(c.CoreDatabaseURL, "CORE_DATABASE_URL")
		require(c.HTTPListenAddr, "HTTP_LISTEN_ADDR")
		require(c.JWTSecret, "JWT_SECRET")
		require(c.VaultBucket, "VAULT_BUCKET")
	case "worker":
		require(c.CoreDatabaseURL, "CORE_DATABASE_URL")
		require(c.TemporalAddress, "TEMPORAL_ADDRESS")
		require(c.VaultBucket, "VAULT_BUCKET")
	case "vaultctl":
		require(c.CoreDatabaseURL, "CORE_DATABASE_URL")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required environment variables: "+strings.Join(missing, ", "))
	}
	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		problems = append(problems, "TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}
	if c.VaultRetention < 1 {
		problems = append(problems, "VAULT_RETENTION must be at least 1")
	}
	if c.VaultStaleAfter <= 0 {
		problems = append(problems, "VAULT_STALE_AFTER must be positive")
	}
	if c.AuditLogRetentionDays < 1 {
		problems = append(problems, "AUDIT_LOG_RETENTION_DAYS must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid %s config: %s", service, strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
