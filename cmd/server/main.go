package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Carlvinchi/ams/backend"
	"github.com/Carlvinchi/ams/internal/config"
	"github.com/Carlvinchi/ams/internal/logging"
	"github.com/Carlvinchi/ams/server"
	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"
)

// maxRestarts bounds how often a failed run is retried before giving up.
const maxRestarts = 5

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	err := restartOnError(maxRestarts, 1*time.Second, func() error {
		return run(*configPath)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Server gave up")
	}
	log.Info().Msg("Server stopped")
}

// restartOnError calls fn until it returns nil or has failed attempts times,
// pausing between attempts. The last error is returned.
func restartOnError(attempts int, pause time.Duration, fn func() error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Error().Err(err).Int("attempt", i).Msg("Error running server")
		if i < attempts {
			time.Sleep(pause)
		}
	}
	return err
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := backend.New(c.GetBackendURL(), backend.WithTimeout(c.GetBackendTimeout()))

	repo, closeRepo, err := openSessionRepo(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	sessions := newRegistry(repo, client, c)
	if n, err := sessions.Sweep(ctx, c.GetMaxSessionAge()); err != nil {
		log.Warn().Err(err).Msg("initial session sweep failed")
	} else if n > 0 {
		log.Info().Int64("removed", n).Msg("removed expired browser sessions")
	}
	go sessions.RunSweeper(ctx, c.GetSessionSweepInterval(), c.GetMaxSessionAge())

	handler, err := server.New(c, client, sessions)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	returnError = shutdown(srv)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
