// Package config loads sender configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tinywideclouds/go-webpush/pkg/push"
)

// Config defines the *single*, authoritative configuration.
type Config struct {
	Vapid               push.VapidOptions
	Delivery            push.DeliveryOptions
	UnauthorizedReasons []string
}

// UpdateConfigWithEnvOverrides applies environment variables, fills defaults
// and validates the result.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. VAPID
	if val := os.Getenv("VAPID_PUBLIC_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PUBLIC_KEY", "source", "env")
		cfg.Vapid.PublicKey = val
	}
	if val := os.Getenv("VAPID_PRIVATE_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PRIVATE_KEY", "source", "env")
		cfg.Vapid.PrivateKey = val
	}
	if val := os.Getenv("VAPID_PEM_FILE"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_PEM_FILE", "source", "env")
		pem, err := os.ReadFile(val)
		if err != nil {
			return nil, fmt.Errorf("failed to read VAPID_PEM_FILE: %w", err)
		}
		cfg.Vapid.PEM = string(pem)
	}
	if val := os.Getenv("VAPID_SUBJECT"); val != "" {
		logger.Debug("Overriding config value", "key", "VAPID_SUBJECT", "source", "env")
		cfg.Vapid.Subject = val
	}
	if err := overrideSeconds("VAPID_EXPIRATION", &cfg.Vapid.Expiration, logger); err != nil {
		return nil, err
	}

	// 2. Delivery
	if err := overrideSeconds("PUSH_TTL", &cfg.Delivery.TTL, logger); err != nil {
		return nil, err
	}
	if os.Getenv("PUSH_TTL") != "" {
		cfg.Delivery.TTLSet = true
	}
	if val := os.Getenv("PUSH_URGENCY"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_URGENCY", "source", "env")
		cfg.Delivery.Urgency = push.Urgency(strings.ToLower(val))
	}
	if val := os.Getenv("PUSH_API_KEY"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_API_KEY", "source", "env")
		cfg.Delivery.APIKey = val
	}
	if err := overrideSeconds("PUSH_OPEN_TIMEOUT", &cfg.Delivery.OpenTimeout, logger); err != nil {
		return nil, err
	}
	if err := overrideSeconds("PUSH_SSL_TIMEOUT", &cfg.Delivery.SSLTimeout, logger); err != nil {
		return nil, err
	}
	if err := overrideSeconds("PUSH_READ_TIMEOUT", &cfg.Delivery.ReadTimeout, logger); err != nil {
		return nil, err
	}
	if val := os.Getenv("PUSH_PROXY_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_PROXY_URL", "source", "env")
		cfg.Delivery.ProxyURL = val
	}

	// 3. Final Validation
	cfg.Vapid = cfg.Vapid.WithDefaults()
	cfg.Delivery = cfg.Delivery.WithDefaults()
	if err := cfg.Vapid.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Delivery.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Vapid.Enabled() && cfg.Delivery.APIKey == "" {
		logger.Warn("No VAPID keys or API key configured. Pushes will be sent unauthenticated.")
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

// overrideSeconds reads an integer number of seconds from the environment.
func overrideSeconds(key string, dst *time.Duration, logger *slog.Logger) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s must be a whole number of seconds: %w", key, err)
	}
	logger.Debug("Overriding config value", "key", key, "source", "env")
	*dst = time.Duration(n) * time.Second
	return nil
}
