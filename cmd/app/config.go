package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sushihentaime/showcase/internal/common"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Environment    string   `mapstructure:"ENVIRONMENT"`
	Version        string   `mapstructure:"VERSION"`
	LogFormat      string   `mapstructure:"LOG_FORMAT"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	TrustedOrigins []string `mapstructure:"TRUSTED_ORIGINS"`
	TLSCertFile    string   `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string   `mapstructure:"TLS_KEY_FILE"`

	DBHost         string        `mapstructure:"POSTGRES_HOST"`
	DBPort         string        `mapstructure:"POSTGRES_PORT"`
	DBUser         string        `mapstructure:"POSTGRES_USER"`
	DBPassword     string        `mapstructure:"POSTGRES_PASSWORD"`
	DBName         string        `mapstructure:"POSTGRES_DB"`
	DBMaxOpenConns int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxIdleTime  time.Duration `mapstructure:"DB_MAX_IDLE_TIME"`
	AutoMigrate    bool          `mapstructure:"AUTO_MIGRATE"`
	Migrations     string        `mapstructure:"MIGRATIONS_SOURCE"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTIssuer string        `mapstructure:"JWT_ISSUER"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	UploadDir      string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL  string `mapstructure:"PUBLIC_BASE_URL"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	RateLimitEnabled bool    `mapstructure:"RATE_LIMIT_ENABLED"`
	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST"`

	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	ReconcileGrace    time.Duration `mapstructure:"RECONCILE_GRACE"`

	MQHost     string `mapstructure:"RABBITMQ_HOST"`
	MQPort     string `mapstructure:"RABBITMQ_PORT"`
	MQUser     string `mapstructure:"RABBITMQ_USER"`
	MQPassword string `mapstructure:"RABBITMQ_PASSWORD"`

	MailHost     string `mapstructure:"MAIL_HOST"`
	MailPort     int    `mapstructure:"MAIL_PORT"`
	MailUser     string `mapstructure:"MAIL_USER"`
	MailPassword string `mapstructure:"MAIL_PASSWORD"`
	MailSender   string `mapstructure:"MAIL_SENDER"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
}

// required settings have no default and must come from the environment or the config file.
var required = []string{
	"POSTGRES_HOST",
	"POSTGRES_PORT",
	"POSTGRES_USER",
	"POSTGRES_PASSWORD",
	"POSTGRES_DB",
	"JWT_SECRET",
}

var defaults = map[string]any{
	"PORT":               "4000",
	"ENVIRONMENT":        "development",
	"VERSION":            "1.0.0",
	"LOG_FORMAT":         "text",
	"LOG_LEVEL":          "info",
	"TRUSTED_ORIGINS":    "http://localhost:3000",
	"TLS_CERT_FILE":      "",
	"TLS_KEY_FILE":       "",
	"DB_MAX_OPEN_CONNS":  25,
	"DB_MAX_IDLE_CONNS":  25,
	"DB_MAX_IDLE_TIME":   "15m",
	"AUTO_MIGRATE":       true,
	"MIGRATIONS_SOURCE":  "file://migrations",
	"JWT_ISSUER":         "showcase",
	"TOKEN_TTL":          "24h",
	"UPLOAD_DIR":         "uploads",
	"PUBLIC_BASE_URL":    "",
	"MAX_UPLOAD_BYTES":   10 << 20,
	"CACHE_TTL":          "5m",
	"RATE_LIMIT_ENABLED": true,
	"RATE_LIMIT_RPS":     10,
	"RATE_LIMIT_BURST":   20,
	"RECONCILE_INTERVAL": "0s",
	"RECONCILE_GRACE":    "10m",
	"RABBITMQ_HOST":      "",
	"RABBITMQ_PORT":      "5672",
	"RABBITMQ_USER":      "guest",
	"RABBITMQ_PASSWORD":  "guest",
	"MAIL_HOST":          "",
	"MAIL_PORT":          587,
	"MAIL_USER":          "",
	"MAIL_PASSWORD":      "",
	"MAIL_SENDER":        "Showcase <no-reply@example.com>",
	"ADMIN_USERNAME":     "",
	"ADMIN_PASSWORD":     "",
	"ADMIN_EMAIL":        "",
}

// loadConfig reads the optional env file at path, then lets process environment variables override it.
func loadConfig(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range required {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if !strings.Contains(config.Port, ":") {
		config.Port = ":" + config.Port
	}

	if err := config.validate(v); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate(v *viper.Viper) error {
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch {
	case len(c.JWTSecret) < 32:
		return errors.New("JWT_SECRET must be at least 32 bytes long")
	case c.MaxUploadBytes <= 0:
		return errors.New("MAX_UPLOAD_BYTES must be greater than zero")
	case c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0):
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be greater than zero")
	case c.ReconcileInterval < 0:
		return errors.New("RECONCILE_INTERVAL must not be negative")
	case c.AdminUsername != "" && c.AdminPassword == "":
		return errors.New("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	case c.Environment == "production" && (c.TLSCertFile == "" || c.TLSKeyFile == ""):
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE are required in production")
	}

	return nil
}

func (c *Config) db() common.DBConfig {
	return common.DBConfig{
		Host:         c.DBHost,
		Port:         c.DBPort,
		User:         c.DBUser,
		Password:     c.DBPassword,
		Name:         c.DBName,
		MaxOpenConns: c.DBMaxOpenConns,
		MaxIdleConns: c.DBMaxIdleConns,
		MaxIdleTime:  c.DBMaxIdleTime,
	}
}
