// Package config loads the process configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. It is built once at startup and never mutated.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Port is the bare port some hosts inject; used for HTTPAddr when HTTP_ADDR is unset.
	Port string `mapstructure:"PORT"`
	// ServiceName and Env are attached to every log line.
	ServiceName string `mapstructure:"SERVICE_NAME"`
	Env         string `mapstructure:"APP_ENV"`
	// LogFile, when set, receives a copy of every log line in addition to stdout.
	LogFile  string `mapstructure:"LOG_FILE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// SiteName is shown in the status payload, pages and email branding.
	SiteName string `mapstructure:"SITE_NAME"`

	RazorpayKeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	// AdminEmail/AdminEmailPassword authenticate the admin notifier identity.
	AdminEmail         string `mapstructure:"ADMIN_EMAIL"`
	AdminEmailPassword string `mapstructure:"ADMIN_EMAIL_PASSWORD"`
	// CustomerEmail/CustomerEmailPassword authenticate the customer confirmation identity.
	CustomerEmail         string `mapstructure:"CUSTOMER_EMAIL"`
	CustomerEmailPassword string `mapstructure:"CUSTOMER_EMAIL_PASSWORD"`
	// AdminRecipient receives every lead notification.
	AdminRecipient string `mapstructure:"ADMIN_RECIPIENT"`
	// SupportContact is printed on the inquiry failure page.
	SupportContact string `mapstructure:"SUPPORT_CONTACT"`

	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// A missing .env is ignored and real environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load() // does not override variables already set

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", "")
	v.SetDefault("PORT", "")
	v.SetDefault("SERVICE_NAME", "promo-site")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_NAME", "Team Circuit Breakers")
	v.SetDefault("RAZORPAY_KEY_ID", "")
	v.SetDefault("RAZORPAY_KEY_SECRET", "")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 465)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_EMAIL_PASSWORD", "")
	v.SetDefault("CUSTOMER_EMAIL", "")
	v.SetDefault("CUSTOMER_EMAIL_PASSWORD", "")
	v.SetDefault("ADMIN_RECIPIENT", "")
	v.SetDefault("SUPPORT_CONTACT", "support@teamcircuitbreakers.in")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
		if p := strings.TrimSpace(cfg.Port); p != "" {
			cfg.HTTPAddr = ":" + p
		}
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return nil, errors.New("config: SMTP_PORT must be between 1 and 65535")
	}
	if cfg.AdminRecipient != "" {
		if _, err := mail.ParseAddress(cfg.AdminRecipient); err != nil {
			return nil, fmt.Errorf("config: ADMIN_RECIPIENT is not a valid address: %w", err)
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &cfg, nil
}

// GatewayConfigured reports whether both payment gateway credentials are present.
func (c *Config) GatewayConfigured() bool {
	return c != nil && c.RazorpayKeyID != "" && c.RazorpayKeySecret != ""
}
