package config

import (
	"strings"
)

const (
	EnvDev  = "DEV"
	EnvProd = "PROD"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type EnvVars struct {
	Env        string `yaml:"env" env:"ENV" env-default:"DEV"`
	AppName    string `yaml:"app_name" env:"APP_NAME" env-default:"AMS Dashboard"`
	Port       string `yaml:"port" env:"PORT" env-default:"8080"`
	BaseURL    string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	DataFolder string `yaml:"data_folder" env:"FOLDER" env-default:"./data"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address in ":port" form.
func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetBaseURL returns the public URL of the dashboard (e.g., "https://ams.example.com")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimRight(e.BaseURL, "/")
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return EnvDev
	}
	return e.Env
}
