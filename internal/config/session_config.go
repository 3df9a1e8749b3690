package config

import (
	"path/filepath"
	"time"
)

type SessionConfig interface {
	GetSessionCookieName() string
	GetMaxSessionAge() time.Duration
	GetLoginTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSessionStore() string
	GetSessionSweepInterval() time.Duration
}

const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

// Session controls browser sessions and the validity windows given to access
// tokens. Tokens from the initial login get LoginTokenTTL, tokens minted by a
// refresh get RefreshTokenTTL.
type Session struct {
	CookieName      string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"ams_session"`
	MaxAge          time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"168h"`
	LoginTokenTTL   time.Duration `yaml:"login_token_ttl" env:"LOGIN_TOKEN_TTL" env-default:"60m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"24h"`
	Store           string        `yaml:"store" env:"SESSION_STORE" env-default:"memory"`
	DBPath          string        `yaml:"db_path" env:"SESSION_DB_PATH"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"15m"`
}

var _ SessionConfig = Session{}

func (s Session) GetSessionCookieName() string {
	if s.CookieName == "" {
		return "ams_session"
	}
	return s.CookieName
}

func (s Session) GetMaxSessionAge() time.Duration {
	return s.MaxAge
}

func (s Session) GetLoginTokenTTL() time.Duration {
	return s.LoginTokenTTL
}

func (s Session) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTokenTTL
}

func (s Session) GetSessionStore() string {
	if s.Store == "" {
		return SessionStoreMemory
	}
	return s.Store
}

func (s Session) GetSessionSweepInterval() time.Duration {
	return s.SweepInterval
}

// GetSessionDBPath is only consulted when the sqlite store is selected. An
// empty path resolves to a file in the data folder.
func (c *Settings) GetSessionDBPath() string {
	if c.Session.DBPath != "" {
		return c.Session.DBPath
	}
	return filepath.Join(c.GetDataFolder(), "sessions.db")
}
