// Package config loads the dashboard settings.
//
// Sources, highest priority first:
//  1. an explicit path (--config);
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment variables only.
//
// Environment variables always overlay whatever the YAML file provides.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	configPathEnvVar = "CONFIG_PATH"
	localConfigFile  = "local.yaml"
)

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	SecurityConfig
	CorsConfig
	GetSessionDBPath() string
}

// Settings is the concrete configuration. Each embedded block implements one
// of the Config sub-interfaces.
type Settings struct {
	EnvVars  `yaml:"app"`
	Backend  `yaml:"backend"`
	Session  `yaml:"session"`
	Security `yaml:"security"`
	Cors     `yaml:"cors"`
}

var _ Config = (*Settings)(nil)

// MustLoad panics when the configuration cannot be loaded.
func MustLoad(path string) *Settings {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Settings, error) {
	var cfg Settings

	readFile := func(p string) (*Settings, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", p, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return &cfg, nil
	}

	if path != "" {
		return readFile(path)
	}

	if envPath := os.Getenv(configPathEnvVar); envPath != "" {
		return readFile(envPath)
	}

	if _, err := os.Stat(localConfigFile); err == nil {
		return readFile(localConfigFile)
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, %s, %s or env vars: %w", configPathEnvVar, localConfigFile, err)
	}
	return &cfg, nil
}
