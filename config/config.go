// Package config loads application configuration from an optional YAML
// file and the environment. The binary works with no config file at all;
// every setting has a default.
package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	} `mapstructure:"server"`

	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Remote struct {
		BaseURL        string `mapstructure:"base_url"`
		Token          string `mapstructure:"token"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"remote"`

	Sync struct {
		ProbeIntervalSeconds int `mapstructure:"probe_interval_seconds"`
	} `mapstructure:"sync"`
}

// Load reads configs/config.yaml when present, then environment overrides.
func Load() *Config {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.AutomaticEnv()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.path", "erp-offline.db")
	v.SetDefault("remote.base_url", "http://127.0.0.1:8002/api")
	v.SetDefault("remote.timeout_seconds", 15)
	v.SetDefault("sync.probe_interval_seconds", 30)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("config: %v (continuing with defaults)", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		log.Fatalf("config: failed to unmarshal: %v", err)
	}
	return cfg
}
