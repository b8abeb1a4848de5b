package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/secrets"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	ERP       ERPConfig
	Database  DatabaseConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

// ERPConfig holds the connection settings for the external order-management
// system. The connection is read-only; this service never writes back.
type ERPConfig struct {
	// URL is the JSON-RPC endpoint base URL, e.g. https://erp.example.com
	URL string `validate:"required,url"`
	// Database is the ERP database name used during authentication
	Database string `validate:"required"`
	// User is the ERP login
	User string `validate:"required"`
	// Password is the ERP password or API key (from ERP-PASSWORD secret in
	// staging/production)
	Password string `validate:"required"`
	// CompanyID restricts every order query to one company
	CompanyID int64 `validate:"gt=0"`
	// RequestTimeout is the per-call timeout (seconds)
	RequestTimeout int
	// MaxRetries bounds the startup connection check
	MaxRetries int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment",
	// "vault", or "auto" (environment in development, vault otherwise)
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout   int
	WriteTimeout  int
	EnableSwagger bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	ReferrerPolicy        string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// JobsConfig holds scheduled job configuration
type JobsConfig struct {
	// MonthlyReportEnabled turns the scheduled previous-month analysis on
	MonthlyReportEnabled bool
	// MonthlyReportCron is the cron expression for the scheduled run
	MonthlyReportCron string
	// MonthlyReportTimeout is the per-run timeout (seconds)
	MonthlyReportTimeout int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// RequestTimeoutDuration returns the ERP call timeout as duration
func (e *ERPConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(e.RequestTimeout) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// MonthlyReportTimeoutDuration returns the scheduled run timeout as duration
func (j *JobsConfig) MonthlyReportTimeoutDuration() time.Duration {
	return time.Duration(j.MonthlyReportTimeout) * time.Second
}

var validate = validator.New()

// ValidateERP checks that the ERP connection settings are complete.
// Called after secret resolution, before the client is constructed.
func (c *Config) ValidateERP() error {
	if err := validate.Struct(&c.ERP); err != nil {
		return fmt.Errorf("incomplete ERP configuration: %w", err)
	}
	return nil
}

// Load loads configuration from file and environment variables.
// This is a basic load that doesn't fetch secrets from vault;
// use LoadWithSecrets for full secret resolution.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// ERP settings can be supplied through plain environment variables in
	// development; staging/production resolve the password from Key Vault
	if cfg.ERP.URL == "" {
		cfg.ERP.URL = v.GetString("ERP_URL")
	}
	if cfg.ERP.Database == "" {
		cfg.ERP.Database = v.GetString("ERP_DATABASE")
	}
	if cfg.ERP.User == "" {
		cfg.ERP.User = v.GetString("ERP_USER")
	}
	if cfg.ERP.Password == "" {
		cfg.ERP.Password = v.GetString("ERP_PASSWORD")
	}
	if cfg.ERP.CompanyID == 0 {
		cfg.ERP.CompanyID = v.GetInt64("ERP_COMPANY_ID")
	}

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves the ERP credentials from
// the configured secret source. In development (or when secrets.source =
// "environment") they come from env vars; in staging/production they are
// fetched from Azure Key Vault.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SecretSource(cfg.Secrets.Source),
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	if !provider.IsVaultEnabled() {
		logger.Info("Using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	logger.Info("Loading secrets from Azure Key Vault",
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
		zap.String("environment", cfg.App.Environment),
	)

	// ERP credentials; an explicit env var still overrides the vault value
	if user, err := provider.GetSecretOrEnv(ctx, "ERP-USER", "ERP_USER"); err == nil && user != "" {
		cfg.ERP.User = user
	}
	password, err := provider.GetSecretOrEnv(ctx, "ERP-PASSWORD", "ERP_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("failed to get ERP-PASSWORD from Key Vault: %w", err)
	}
	cfg.ERP.Password = password

	// Database password for the run log
	if dbPassword, err := provider.GetSecretOrEnv(ctx, "POSTGRES-PASSWORD", "DATABASE_PASSWORD"); err == nil && dbPassword != "" {
		cfg.Database.Password = dbPassword
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Price Control API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// ERP defaults
	v.SetDefault("erp.requestTimeout", 60)
	v.SetDefault("erp.maxRetries", 3)

	// Database defaults (run log only)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "pricecontrol")
	v.SetDefault("database.user", "pricecontrol_user")
	v.SetDefault("database.password", "pricecontrol_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 10)
	v.SetDefault("database.maxIdleConns", 2)
	v.SetDefault("database.connMaxLifetime", 300)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 120)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 30)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/ready"})

	// Scheduled jobs defaults: previous-month report at 07:00 on day 1
	v.SetDefault("jobs.monthlyReportEnabled", false)
	v.SetDefault("jobs.monthlyReportCron", "0 0 7 1 * *")
	v.SetDefault("jobs.monthlyReportTimeout", 600)
}
