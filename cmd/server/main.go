package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-portal/apiclient"
	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/config"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/metrics"
	"github.com/jrsteele09/go-auth-portal/server"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.Wrapf(errors.ErrInternal, "panic recovered: %v", r)
		}
	}()

	c := config.New()
	setupLogging(c)
	if err := config.Validate(c); err != nil {
		return err
	}
	displayAppname(c.GetAppName())

	handler, err := newHandler(c)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(srv) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func newHandler(c config.Config) (http.Handler, error) {
	registry, err := clients.LoadFile(c.GetSSOClientsFile())
	if err != nil {
		return nil, fmt.Errorf("loading sso clients: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(promRegistry)

	httpClient, err := apiclient.NewHTTPClient(c.GetHTTPTimeout())
	if err != nil {
		return nil, err
	}

	store := token.NewMemoryStore()
	client, err := apiclient.New(apiclient.Config{
		BaseURL:       c.GetAPIBaseURL(),
		HTTPClient:    httpClient,
		Store:         store,
		SharedRefresh: c.GetSharedRefresh(),
		LoginPath:     c.GetLoginPath(),
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}

	orchestrator := sessions.New(sessions.Config{
		Store:    store,
		Registry: registry,
		ClientID: c.GetClientID(),
		Delay:    c.GetRedirectDelay(),
		Metrics:  m,
	})

	log.Info().Int("clients", registry.Len()).Msg("sso registry loaded")
	if _, ok := registry.Resolve(c.GetClientID()); !ok {
		log.Warn().Err(errors.ErrClientNotFound).Str("client_id", c.GetClientID()).Msg("logins will stay on the portal")
	}

	srv, err := server.New(c, server.Deps{
		Identity: identity.NewService(client, c.GetClientID(), registry),
		Sessions: orchestrator,
		Registry: registry,
		Store:    store,
		Metrics:  metrics.Handler(promRegistry),
	})
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
