package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devJWTSecret is only accepted when ENV=development.
const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn        time.Duration `mapstructure:"JWT_EXPIRES_IN"`
	ResetTokenExpiresIn time.Duration `mapstructure:"RESET_TOKEN_EXPIRES_IN"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit      string   `mapstructure:"BODY_LIMIT"`

	StripeSecretKey string `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentCurrency string `mapstructure:"PAYMENT_CURRENCY"`
	CloudinaryURL   string `mapstructure:"CLOUDINARY_URL"`
	UploadFolder    string `mapstructure:"UPLOAD_FOLDER"`

	SMTPHost         string `mapstructure:"SMTP_HOST"`
	SMTPPort         int    `mapstructure:"SMTP_PORT"`
	SMTPUsername     string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string `mapstructure:"SMTP_PASSWORD"`
	MailFrom         string `mapstructure:"MAIL_FROM"`
	ResetPasswordURL string `mapstructure:"EMAIL_RESET_PASSWORD_URL"`
	MigrationsDir    string `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("RESET_TOKEN_EXPIRES_IN", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "5M")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("UPLOAD_FOLDER", "healthcare")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "no-reply@healthcare.local")
	v.SetDefault("EMAIL_RESET_PASSWORD_URL", "http://localhost:3000/reset-password")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
		"JWT_SECRET", "JWT_EXPIRES_IN", "RESET_TOKEN_EXPIRES_IN",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT",
		"STRIPE_SECRET_KEY", "PAYMENT_CURRENCY", "CLOUDINARY_URL", "UPLOAD_FOLDER",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
		"EMAIL_RESET_PASSWORD_URL", "MIGRATIONS_DIR",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		log.Println("WARNING: JWT_SECRET is not set; using the development secret.")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PaymentsEnabled reports whether a real payment gateway is configured.
func (c *Config) PaymentsEnabled() bool { return c.StripeSecretKey != "" }

// SMTPEnabled reports whether outbound mail goes to a real SMTP relay.
func (c *Config) SMTPEnabled() bool { return c.SMTPHost != "" }

// Validate checks that the configuration is safe to run. Outside development
// a real signing secret is required, and production additionally requires a
// payment gateway key.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" || c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
		}
	}
	if c.IsProduction() && !c.PaymentsEnabled() {
		return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if c.ResetTokenExpiresIn <= 0 {
		return fmt.Errorf("RESET_TOKEN_EXPIRES_IN must be positive")
	}
	if len(c.PaymentCurrency) != 3 {
		return fmt.Errorf("PAYMENT_CURRENCY must be a 3-letter ISO code, got %q", c.PaymentCurrency)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
