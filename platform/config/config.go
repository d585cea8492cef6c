// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetDefaultSessionTimeout() time.Duration
	GetMaxSessionTimeout() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketInspectionPhotos() string
	GetMinioBucketCertificates() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq-backed background jobs.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SMTPConfig provides settings for the email notification channel.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// SMSConfig provides settings for the SMS notification channel.
type SMSConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	GetPhoneDefaultRegion() string
	IsSMSEnabled() bool
}

// AuditConfig provides settings for the audit log sink.
type AuditConfig interface {
	GetAuditSink() string
	GetAMQPURL() string
	GetAuditExchange() string
	GetAuditQueue() string
	GetAuditRetention() time.Duration
}

// LifecycleConfig provides the tunables of the appointment lifecycle.
type LifecycleConfig interface {
	GetVerifyTimeout() time.Duration
	GetReconcileInterval() time.Duration
	GetScheduleLocation() *time.Location
}

// TracingConfig provides OpenTelemetry exporter settings.
type TracingConfig interface {
	GetOTLPEndpoint() string
	GetServiceName() string
	IsTracingEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	JWTAccessSecret             string
	DefaultSessionTimeout       time.Duration
	MaxSessionTimeout           time.Duration
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	MinIOEndpoint               string
	MinIOAccessKey              string
	MinIOSecretKey              string
	MinIOUseSSL                 bool
	MinIOMaxFileSize            int64
	MinioBucketInspectionPhotos string
	MinioBucketCertificates     string
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	SMTPHost                    string
	SMTPPort                    int
	SMTPUsername                string
	SMTPPassword                string
	EmailFromName               string
	EmailFromAddress            string
	TwilioAccountSID            string
	TwilioAuthToken             string
	TwilioFromNumber            string
	PhoneDefaultRegion          string
	AuditSink                   string
	AMQPURL                     string
	AuditExchange               string
	AuditQueue                  string
	AuditRetention              time.Duration
	VerifyTimeout               time.Duration
	ReconcileInterval           time.Duration
	ScheduleLocation            *time.Location
	OTLPEndpoint                string
	ServiceName                 string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetDefaultSessionTimeout() time.Duration { return c.DefaultSessionTimeout }
func (c *Config) GetMaxSessionTimeout() time.Duration     { return c.MaxSessionTimeout }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketInspectionPhotos() string {
	return c.MinioBucketInspectionPhotos
}
func (c *Config) GetMinioBucketCertificates() string {
	return c.MinioBucketCertificates
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool         { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// SMSConfig implementation
func (c *Config) GetTwilioAccountSID() string   { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string    { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string   { return c.TwilioFromNumber }
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }
func (c *Config) IsSMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// AuditConfig implementation
func (c *Config) GetAuditSink() string              { return c.AuditSink }
func (c *Config) GetAMQPURL() string                { return c.AMQPURL }
func (c *Config) GetAuditExchange() string          { return c.AuditExchange }
func (c *Config) GetAuditQueue() string             { return c.AuditQueue }
func (c *Config) GetAuditRetention() time.Duration  { return c.AuditRetention }

// LifecycleConfig implementation
func (c *Config) GetVerifyTimeout() time.Duration       { return c.VerifyTimeout }
func (c *Config) GetReconcileInterval() time.Duration   { return c.ReconcileInterval }
func (c *Config) GetScheduleLocation() *time.Location   { return c.ScheduleLocation }

// TracingConfig implementation
func (c *Config) GetOTLPEndpoint() string { return c.OTLPEndpoint }
func (c *Config) GetServiceName() string  { return c.ServiceName }
func (c *Config) IsTracingEnabled() bool  { return c.OTLPEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	location, err := time.LoadLocation(getEnv("SCHEDULE_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		DefaultSessionTimeout:       mustDuration(getEnv("DEFAULT_SESSION_TIMEOUT", "15m")),
		MaxSessionTimeout:           mustDuration(getEnv("MAX_SESSION_TIMEOUT", "24h")),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		MinIOEndpoint:               getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:              getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:              getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                 strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:            mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketInspectionPhotos: getEnv("MINIO_BUCKET_INSPECTION_PHOTOS", "inspection-photos"),
		MinioBucketCertificates:     getEnv("MINIO_BUCKET_CERTIFICATES", "inspection-certificates"),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:                    getEnv("SMTP_HOST", ""),
		SMTPPort:                    mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                getEnv("SMTP_PASSWORD", ""),
		EmailFromName:               getEnv("EMAIL_FROM_NAME", "Vehicle Inspection"),
		EmailFromAddress:            getEnv("EMAIL_FROM_ADDRESS", ""),
		TwilioAccountSID:            getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:             getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:            getEnv("TWILIO_FROM_NUMBER", ""),
		PhoneDefaultRegion:          getEnv("PHONE_DEFAULT_REGION", "BE"),
		AuditSink:                   strings.ToLower(getEnv("AUDIT_SINK", "database")),
		AMQPURL:                     getEnv("AMQP_URL", ""),
		AuditExchange:               getEnv("AUDIT_EXCHANGE", "inspection.audit"),
		AuditQueue:                  getEnv("AUDIT_QUEUE", "inspection.audit.store"),
		AuditRetention:              mustDuration(getEnv("AUDIT_RETENTION", "720h")),
		VerifyTimeout:               mustDuration(getEnv("LIFECYCLE_VERIFY_TIMEOUT", "3s")),
		ReconcileInterval:           mustDuration(getEnv("LIFECYCLE_RECONCILE_INTERVAL", "5m")),
		ScheduleLocation:            location,
		OTLPEndpoint:                getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:                 getEnv("OTEL_SERVICE_NAME", "vehicle-inspection-backend"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	switch cfg.AuditSink {
	case "database", "amqp", "both":
	default:
		return nil, fmt.Errorf("AUDIT_SINK must be one of database, amqp, both")
	}
	if cfg.AuditSink != "database" && cfg.AMQPURL == "" {
		return nil, fmt.Errorf("AMQP_URL is required when AUDIT_SINK is %s", cfg.AuditSink)
	}
	if cfg.VerifyTimeout <= 0 {
		return nil, fmt.Errorf("LIFECYCLE_VERIFY_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
