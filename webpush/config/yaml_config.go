package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tinywideclouds/go-webpush/pkg/push"
	"gopkg.in/yaml.v3"
)

type YamlVapidConfig struct {
	Subject           string `yaml:"subject"`
	ExpirationSeconds int    `yaml:"expiration_seconds"`
	PublicKey         string `yaml:"public_key"`
	PrivateKey        string `yaml:"private_key"`
	PemFile           string `yaml:"pem_file"`
}

type YamlDeliveryConfig struct {
	TTLSeconds         *int   `yaml:"ttl_seconds"`
	Urgency            string `yaml:"urgency"`
	APIKey             string `yaml:"api_key"`
	OpenTimeoutSeconds int    `yaml:"open_timeout_seconds"`
	SSLTimeoutSeconds  int    `yaml:"ssl_timeout_seconds"`
	ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
	ProxyURL           string `yaml:"proxy_url"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	Vapid               YamlVapidConfig    `yaml:"vapid"`
	Delivery            YamlDeliveryConfig `yaml:"delivery"`
	UnauthorizedReasons []string           `yaml:"unauthorized_reasons"`
}

// ParseYaml unmarshals raw YAML bytes.
func ParseYaml(data []byte) (*YamlConfig, error) {
	var yc YamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml config: %w", err)
	}
	return &yc, nil
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
// A configured pem_file is read here.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		Vapid: push.VapidOptions{
			Subject:    baseCfg.Vapid.Subject,
			Expiration: seconds(baseCfg.Vapid.ExpirationSeconds),
			PublicKey:  baseCfg.Vapid.PublicKey,
			PrivateKey: baseCfg.Vapid.PrivateKey,
		},
		Delivery: push.DeliveryOptions{
			Urgency:     push.Urgency(baseCfg.Delivery.Urgency),
			APIKey:      baseCfg.Delivery.APIKey,
			OpenTimeout: seconds(baseCfg.Delivery.OpenTimeoutSeconds),
			SSLTimeout:  seconds(baseCfg.Delivery.SSLTimeoutSeconds),
			ReadTimeout: seconds(baseCfg.Delivery.ReadTimeoutSeconds),
			ProxyURL:    baseCfg.Delivery.ProxyURL,
		},
		UnauthorizedReasons: baseCfg.UnauthorizedReasons,
	}

	if ttl := baseCfg.Delivery.TTLSeconds; ttl != nil {
		cfg.Delivery.TTL = seconds(*ttl)
		cfg.Delivery.TTLSet = true
	}

	if baseCfg.Vapid.PemFile != "" {
		pem, err := os.ReadFile(baseCfg.Vapid.PemFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read vapid pem file: %w", err)
		}
		cfg.Vapid.PEM = string(pem)
	}

	logger.Debug("YAML config mapping complete",
		"vapid_enabled", cfg.Vapid.Enabled(),
		"urgency", cfg.Delivery.Urgency,
		"ttl", cfg.Delivery.TTL,
	)
	return cfg, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
