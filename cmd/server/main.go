package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/vowquiz/go-quiz-auth/authstate"
	"github.com/vowquiz/go-quiz-auth/internal/config"
	"github.com/vowquiz/go-quiz-auth/pkg/db"
	"github.com/vowquiz/go-quiz-auth/profile"
	"github.com/vowquiz/go-quiz-auth/profile/postgres"
	fakeprofilerepo "github.com/vowquiz/go-quiz-auth/profile/repofake"
	"github.com/vowquiz/go-quiz-auth/routeguard"
	"github.com/vowquiz/go-quiz-auth/server"
	"github.com/vowquiz/go-quiz-auth/session/local"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())
	logger := newLogger(c)

	repo, cleanup, err := newProfileRepo(c, logger)
	if err != nil {
		return fmt.Errorf("profile repo: %w", err)
	}
	defer cleanup()

	resolver, err := profile.NewResolver(repo, profile.WithLogger(logger.With().Str("component", "resolver").Logger()))
	if err != nil {
		return fmt.Errorf("profile resolver: %w", err)
	}

	rules, err := newRules(c)
	if err != nil {
		return fmt.Errorf("route rules: %w", err)
	}

	store := local.New(c.GetJWTSecret(),
		local.WithAccessTokenTTL(c.GetAccessTokenTTL()),
		local.WithAutoConfirm(c.GetAutoConfirm()),
		local.WithLogger(logger.With().Str("component", "session").Logger()),
	)

	machine, err := authstate.NewMachine(store, resolver,
		authstate.WithInitTimeout(c.GetInitTimeout()),
		authstate.WithRules(rules),
		authstate.WithLogger(logger.With().Str("component", "authstate").Logger()),
	)
	if err != nil {
		return fmt.Errorf("auth machine: %w", err)
	}
	defer machine.Close()

	srv, err := server.New(machine, logger.With().Str("component", "http").Logger())
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv.Router()}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// newProfileRepo wires the Postgres repository when a DSN is configured, and
// falls back to the in-memory repository for local development.
func newProfileRepo(c config.Config, logger zerolog.Logger) (profile.Repo, func(), error) {
	dsn := c.GetDatabaseDSN()
	if dsn == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory profile store")
		return fakeprofilerepo.NewFakeProfileRepo(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db.Open: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db.Migrate: %w", err)
	}

	repo, err := postgres.New(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres.New: %w", err)
	}
	return repo, pool.Close, nil
}

func newRules(c config.Config) (*routeguard.Rules, error) {
	if path := c.GetRouteRulesFile(); path != "" {
		return routeguard.LoadRules(path)
	}
	return routeguard.DefaultRules(), nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
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
