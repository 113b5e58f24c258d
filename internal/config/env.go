package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"sync"
)

type Env struct {
	Port     string
	LogLevel string
	LogFile  string

	// platform metadata database (restore records, backups, projects, audit)
	MetadataDsn string

	// tenant cluster holding the per-project schemas
	TenantDbHost     string
	TenantDbPort     int
	TenantDbUser     string
	TenantDbPassword string
	TenantDbName     string
	TenantDbSslMode  string

	ValkeyHost     string
	ValkeyPort     string
	ValkeyUsername string
	ValkeyPassword string
	ValkeyIsSsl    bool

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// hex-encoded 256-bit KEK for backup envelopes
	MasterKeyHex string

	PsqlPath   string
	PgDumpPath string

	RestoreToolTimeoutMinutes int
	MaxRestorePayloadMB       int
	OldSchemaRetentionHours   int

	TestMetadataDsn  string
	TestPostgresPort string
}

var (
	once sync.Once
	env  *Env
)

func GetEnv() *Env {
	once.Do(func() {
		env = &Env{
			Port:     getEnvOrDefault("PORT", "4100"),
			LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
			LogFile:  os.Getenv("LOG_FILE"),

			MetadataDsn: getEnvOrDefault(
				"METADATA_DSN",
				"host=localhost port=5432 user=tenantbase password=tenantbase dbname=tenantbase sslmode=disable",
			),

			TenantDbHost:     getEnvOrDefault("TENANT_DB_HOST", "localhost"),
			TenantDbPort:     getEnvIntOrDefault("TENANT_DB_PORT", 5432),
			TenantDbUser:     getEnvOrDefault("TENANT_DB_USER", "tenantbase"),
			TenantDbPassword: getEnvOrDefault("TENANT_DB_PASSWORD", "tenantbase"),
			TenantDbName:     getEnvOrDefault("TENANT_DB_NAME", "tenants"),
			TenantDbSslMode:  getEnvOrDefault("TENANT_DB_SSL_MODE", "disable"),

			ValkeyHost:     getEnvOrDefault("VALKEY_HOST", "localhost"),
			ValkeyPort:     getEnvOrDefault("VALKEY_PORT", "6379"),
			ValkeyUsername: os.Getenv("VALKEY_USERNAME"),
			ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
			ValkeyIsSsl:    os.Getenv("VALKEY_IS_SSL") == "true",

			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3Region:    getEnvOrDefault("S3_REGION", "us-east-1"),
			S3Bucket:    getEnvOrDefault("S3_BUCKET", "tenantbase-backups"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey: os.Getenv("S3_SECRET_KEY"),

			MasterKeyHex: os.Getenv("BACKUP_MASTER_KEY"),

			PsqlPath:   getEnvOrDefault("PSQL_PATH", "psql"),
			PgDumpPath: getEnvOrDefault("PG_DUMP_PATH", "pg_dump"),

			RestoreToolTimeoutMinutes: getEnvIntOrDefault("RESTORE_TOOL_TIMEOUT_MINUTES", 10),
			MaxRestorePayloadMB:       getEnvIntOrDefault("MAX_RESTORE_PAYLOAD_MB", 100),
			OldSchemaRetentionHours:   getEnvIntOrDefault("OLD_SCHEMA_RETENTION_HOURS", 24),

			TestMetadataDsn:  os.Getenv("TEST_METADATA_DSN"),
			TestPostgresPort: getEnvOrDefault("TEST_POSTGRES_PORT", "5433"),
		}
	})

	return env
}

// MasterKey decodes the configured KEK. The key must be exactly 256 bits;
// anything else is a configuration error, not a decryption failure.
func (e *Env) MasterKey() ([]byte, error) {
	if e.MasterKeyHex == "" {
		return nil, fmt.Errorf("BACKUP_MASTER_KEY is not set")
	}

	key, err := hex.DecodeString(e.MasterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("BACKUP_MASTER_KEY is not valid hex: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("BACKUP_MASTER_KEY must be 32 bytes, got %d", len(key))
	}

	return key, nil
}

// TenantDsn builds the connection string for a dedicated session against the
// tenant cluster.
func (e *Env) TenantDsn() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		e.TenantDbHost,
		e.TenantDbPort,
		e.TenantDbUser,
		e.TenantDbPassword,
		e.TenantDbName,
		e.TenantDbSslMode,
	)
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}
