// Command fakebackend serves the in-process AMS API stand-in on a port, seeded
// with one user per role, so the dashboard can be run locally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Carlvinchi/ams/backend/backendfake"
	"github.com/Carlvinchi/ams/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	baseURL := flag.String("base-url", "http://localhost:8000", "public URL, seeded emails use its host")
	secret := flag.String("secret", "", "JWT signing secret (random when empty)")
	password := flag.String("password", "", "password for every seeded user (generated when empty)")
	accessTTL := flag.Duration("access-ttl", 20*time.Minute, "access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
	flag.Parse()

	logging.Setup(os.Getenv("ENV"))

	options := []backendfake.Option{backendfake.WithTokenTTL(*accessTTL, *refreshTTL)}
	if *secret != "" {
		options = append(options, backendfake.WithSecret(*secret))
	}
	fake := backendfake.New(options...)

	seeded, err := seedUsers(fake, *baseURL, *password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed users")
	}
	for _, u := range seeded {
		log.Info().Str("role", u.Role).Str("email", u.Email).Str("password", u.Password).Msg("seeded user")
	}

	srv := &http.Server{Addr: *addr, Handler: fake, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("fake backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("fake backend stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}
