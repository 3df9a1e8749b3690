package main

import (
	"fmt"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/internal/config"
	"github.com/Carlvinchi/ams/server/loginsession"
	"github.com/Carlvinchi/ams/session"
	"github.com/rs/zerolog/log"
)

// openSessionRepo returns the configured browser session repository and a
// func releasing it.
func openSessionRepo(c config.Config) (loginsession.Repo, func(), error) {
	switch c.GetSessionStore() {
	case config.SessionStoreMemory:
		log.Info().Msg("browser sessions kept in memory")
		return loginsession.NewInMemoryRepo(), func() {}, nil
	case config.SessionStoreSQLite:
		path := c.GetSessionDBPath()
		repo, err := loginsession.OpenSQLiteRepo(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		log.Info().Str("path", path).Msg("browser sessions kept in sqlite")
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Err(err).Msg("failed to close session store")
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", c.GetSessionStore())
	}
}

func newRegistry(repo loginsession.Repo, client *backend.Client, c config.Config) *loginsession.Registry {
	auth := session.NewAuthenticator(client, session.WithLoginTokenTTL(c.GetLoginTokenTTL()))
	refresher := session.NewRefresher(client, session.WithRefreshTokenTTL(c.GetRefreshTokenTTL()))
	return loginsession.NewRegistry(repo, func(store session.Store) *session.Manager {
		return session.NewManager(store, auth, refresher)
	})
}
