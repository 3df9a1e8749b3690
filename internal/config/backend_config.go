package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBackendURL() string
	GetBackendTimeout() time.Duration
	GetMaxUploadBytes() int64
}

// Backend points at the AMS REST API that owns users, roles and tokens.
type Backend struct {
	URL            string        `yaml:"url" env:"BACKEND_URL" env-default:"http://localhost:8000"`
	Timeout        time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"5242880"`
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return strings.TrimRight(b.URL, "/")
}

func (b Backend) GetBackendTimeout() time.Duration {
	return b.Timeout
}

func (b Backend) GetMaxUploadBytes() int64 {
	if b.MaxUploadBytes <= 0 {
		return 5 << 20
	}
	return b.MaxUploadBytes
}
