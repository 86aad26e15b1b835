package config

import (
	"log/slog"
	"os"
	"strings"
)

// Header constants.
const (
	HEADER_KEY_X_USER_ID        = "X-User-Id"
	HEADER_KEY_X_CLIENT_ID      = "X-Client-Id"
	HEADER_KEY_X_EXPORT_SKIPPED = "X-Export-Skipped"
)

const (
	ENV_KEY_APP_ENV   = "APP_ENV"
	ENV_KEY_PORT      = "PORT"
	ENV_KEY_LOG_LEVEL = "LOG_LEVEL"

	ENV_KEY_DB_DRIVER               = "DB_DRIVER"
	ENV_KEY_DB_SQLITE_PATH          = "DB_SQLITE_PATH"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST         = "REDIS_HOST"
	ENV_KEY_REDIS_PORT         = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD     = "REDIS_PASSWORD"
	ENV_KEY_REDIS_PREFIX       = "REDIS_PREFIX"
	ENV_KEY_WORKER_CONCURRENCY = "WORKER_CONCURRENCY"

	ENV_KEY_KAFKA_BROKERS     = "KAFKA_BROKERS"
	ENV_KEY_KAFKA_EVENT_TOPIC = "KAFKA_EVENT_TOPIC"

	ENV_KEY_STORAGE_DRIVER    = "STORAGE_DRIVER"
	ENV_KEY_MINIO_BUCKET      = "MINIO_BUCKET"
	ENV_KEY_MINIO_EXPORT_PATH = "MINIO_EXPORT_PATH"
	ENV_KEY_MINIO_ENDPOINT    = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY  = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY  = "MINIO_SECRET_KEY"
	ENV_KEY_MINIO_USE_SSL     = "MINIO_USE_SSL"
	ENV_KEY_S3_BUCKET         = "S3_BUCKET"
	ENV_KEY_S3_EXPORT_PATH    = "S3_EXPORT_PATH"
	ENV_KEY_LOCAL_EXPORT_DIR  = "LOCAL_EXPORT_DIR"

	ENV_KEY_SMTP_HOST     = "SMTP_HOST"
	ENV_KEY_SMTP_PORT     = "SMTP_PORT"
	ENV_KEY_SMTP_USERNAME = "SMTP_USERNAME"
	ENV_KEY_SMTP_PASSWORD = "SMTP_PASSWORD"
	ENV_KEY_MAIL_FROM     = "MAIL_FROM"

	ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_KEY_EXPORT_RATE_LIMIT           = "EXPORT_RATE_LIMIT"
)

const (
	DB_DRIVER_SQLITE   = "sqlite"
	DB_DRIVER_POSTGRES = "postgres"
	DB_DRIVER_REDIS    = "redis"

	STORAGE_DRIVER_MINIO = "minio"
	STORAGE_DRIVER_S3    = "s3"
	STORAGE_DRIVER_LOCAL = "local"
)

// Presigned download links for finished exports.
const PRESIGN_URL_EXPIRE_MINUTES = 15

const (
	QUEUE_CRITICAL = "critical"
	QUEUE_DEFAULT  = "default"
	QUEUE_LOW      = "low"
)

const (
	TASK_EXPORT_PROJECT = "export:project"
	TASK_EXPORT_CLEANUP = "export:cleanup"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
	CTX_KEY_CLIENT_ID
)

// LogLevel reads ENV_KEY_LOG_LEVEL. Unknown values fall back to INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv(ENV_KEY_LOG_LEVEL)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}
