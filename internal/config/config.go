package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort    int `yaml:"apiPort"`
	PortalPort int `yaml:"portalPort"`

	Database struct {
		Type            string `yaml:"type"` // "postgres" or "sqlite"
		Path            string `yaml:"path"` // sqlite only
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		Name            string `yaml:"name"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		SSLMode         string `yaml:"sslMode"`
		MaxConns        int    `yaml:"maxConns"`
		MaxIdle         int    `yaml:"maxIdle"`
		ConnMaxLifetime string `yaml:"connMaxLifetime"`
	} `yaml:"database"`

	Domains struct {
		Portal string `yaml:"portal"`
		API    string `yaml:"api"`
		Secure bool   `yaml:"secure"`
	} `yaml:"domains"`

	Auth struct {
		TokenSecret     string `yaml:"tokenSecret"`
		SessionTTLHours int    `yaml:"sessionTTLHours"`
	} `yaml:"auth"`

	Assistant struct {
		Endpoint       string `yaml:"endpoint"`
		APIKey         string `yaml:"apiKey"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"assistant"`

	Storage struct {
		Enabled         bool   `yaml:"enabled"`
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"storage"`

	Email struct {
		Enabled     bool   `yaml:"enabled"`
		SendGridKey string `yaml:"sendGridKey"`
		FromName    string `yaml:"fromName"`
		FromEmail   string `yaml:"fromEmail"`
	} `yaml:"email"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, err
		}
		log.Printf("Warning: could not read config file: %s. Using defaults and environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
	}
	if cfg.PortalPort == 0 {
		cfg.PortalPort = 8082
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/chartmentor.db"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Domains.Portal == "" {
		cfg.Domains.Portal = "portal.chartmentor.io"
	}
	if cfg.Domains.API == "" {
		cfg.Domains.API = "api.chartmentor.io"
	}
	if !v.IsSet("domains.secure") {
		cfg.Domains.Secure = os.Getenv("CHARTMENTOR_ENV") == "prod"
	}

	if cfg.Auth.TokenSecret == "" {
		cfg.Auth.TokenSecret = os.Getenv("CHARTMENTOR_TOKEN_SECRET")
	}
	if cfg.Auth.SessionTTLHours == 0 {
		cfg.Auth.SessionTTLHours = 24
	}

	if cfg.Assistant.Endpoint == "" {
		cfg.Assistant.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gpt-4o-mini"
	}
	if cfg.Assistant.TimeoutSeconds == 0 {
		cfg.Assistant.TimeoutSeconds = 30
	}

	log.Printf("Configuration loaded: api=%d portal=%d db=%s", cfg.APIPort, cfg.PortalPort, cfg.Database.Type)
	return &cfg, nil
}
