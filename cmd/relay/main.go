package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/go-url-relay/internal/app/server"
	grpcserver "github.com/atinyakov/go-url-relay/internal/app/server/grpc"
	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/config"
	"github.com/atinyakov/go-url-relay/internal/logger"
	"github.com/atinyakov/go-url-relay/internal/metrics"
	"github.com/atinyakov/go-url-relay/internal/relay"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	pprofAddr         = "localhost:6060"
)

func main() {
	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv); err != nil {
		log.Fatal(err)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func run(ctx context.Context, args []string, getenv func(string) string) error {
	opts, err := config.Parse(args, getenv)
	if err != nil {
		return err
	}

	l := logger.New()
	if err := l.Init(opts.LogLevel, opts.LogFile); err != nil {
		return err
	}
	zapLogger := l.Log
	defer func() {
		_ = zapLogger.Sync()
	}()

	if opts.EnvFile != "" {
		zapLogger.Info("loaded env file", zap.String("path", opts.EnvFile))
	}

	a, err := newApp(ctx, opts, zapLogger)
	if err != nil {
		return err
	}

	return a.serve(ctx)
}

type app struct {
	opts    *config.Options
	logger  *zap.Logger
	store   service.Storage
	service *service.RelayService
	auth    *service.BearerAuth
	router  http.Handler
}

func newApp(ctx context.Context, opts *config.Options, logger *zap.Logger) (*app, error) {
	metrics.Init()

	store, err := openStore(ctx, opts.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	fetcher := relay.NewFetcher(relay.Options{
		ConnectTimeout: opts.ConnectTimeout,
		HeaderTimeout:  opts.HeaderTimeout,
	}, logger)

	svc := service.NewRelay(store, fetcher, logger)
	auth := service.NewBearerAuth(opts.BearerAuth)
	if !auth.Enabled() {
		logger.Warn("bearer auth disabled, every request is accepted")
	}

	return &app{
		opts:    opts,
		logger:  logger,
		store:   store,
		service: svc,
		auth:    auth,
		router:  server.Init(opts.BaseURL, logger, svc, auth),
	}, nil
}

// serve runs every configured listener until ctx is done or one of them
// fails, then drains them and closes the store.
func (a *app) serve(ctx context.Context) error {
	defer func() {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close store", zap.Error(err))
		}
	}()

	errCh := make(chan error, 4)

	httpServer := &http.Server{
		Addr:              a.opts.ServerAddress,
		Handler:           a.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", a.opts.ServerAddress)
	if err != nil {
		return err
	}

	if a.opts.EnableHTTPS {
		manager := &autocert.Manager{
			Cache:      autocert.DirCache(filepath.Join(a.opts.DataPath, "autocert")),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(a.opts.HTTPSHosts...),
		}
		httpServer.TLSConfig = manager.TLSConfig()

		a.logger.Info("Server is running with TLS", zap.String("addr", ln.Addr().String()))
		go func() { errCh <- httpServer.ServeTLS(ln, "", "") }()
	} else {
		a.logger.Info("Server is running", zap.String("addr", ln.Addr().String()))
		go func() { errCh <- httpServer.Serve(ln) }()
	}

	var metricsServer *http.Server
	if a.opts.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: a.opts.MetricsAddress, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

		a.logger.Info("Starting metrics server", zap.String("addr", a.opts.MetricsAddress))
		go func() { errCh <- metricsServer.ListenAndServe() }()
	}

	var grpcServer *grpcserver.Server
	if a.opts.GRPCAddress != "" {
		grpcServer = grpcserver.New(a.opts.BaseURL, a.logger, a.service, a.auth, a.opts.GRPCAddress)
		go func() { errCh <- grpcServer.Start() }()
	}

	if a.opts.EnablePprof {
		go func() {
			a.logger.Info("Starting pprof server", zap.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				a.logger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
		a.logger.Error("listener stopped", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics shutdown", zap.Error(err))
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	return serveErr
}
