package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"artifactlive.org/internal/auth"
	"artifactlive.org/internal/config"
	"artifactlive.org/internal/httpapi"
	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/store"
	"artifactlive.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// devOwner serves every request when no auth secret is configured.
const devOwner = "demo"

func main() {
	if err := run(); err != nil {
		obs.Logger().Error("api stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	obs.Configure(os.Stdout, cfg.LogLevel)
	obs.Init()
	log := obs.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend, err := store.Open(openCtx, store.Options{
		PGDSN:      cfg.PGDSN,
		SQLitePath: cfg.SQLitePath,
		Pricing:    cfg.Pricing,
		MigrateUp:  true,
	})
	cancel()
	if err != nil {
		return err
	}
	defer backend.Close()
	if !backend.Persistent() {
		log.Warn("no database configured, ledger is kept in memory", "env", []string{config.EnvPGDSN, config.EnvSQLitePath})
	} else {
		log.Info("ledger backend ready", "driver", backend.Driver)
	}
	obs.SetBuildInfo(obs.BuildInfo{Version: version, Commit: commit, Backend: backend.Driver})

	deps := httpapi.Deps{
		Ledger:     ledger.NewService(backend.Ledger),
		Pricing:    backend.Pricing,
		Stream:     stream.New(stream.WithDropHook(obs.RecordStreamDrop)),
		Ready:      httpapi.ReadyProbe{DB: backend.DB},
		Version:    version,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
	}
	if cfg.AuthSecret != "" {
		if deps.Issuer, err = auth.NewIssuer(cfg.AuthSecret, auth.WithTTL(cfg.TokenTTL)); err != nil {
			return err
		}
		if deps.Credentials, err = auth.ParseCredentials(cfg.DevTokens); err != nil {
			return err
		}
	} else {
		log.Warn("auth disabled, all requests act as the development owner", "owner", devOwner)
		deps.DefaultOwner = devOwner
		if _, err := deps.Ledger.ProvisionOwner(ctx, devOwner); err != nil {
			return err
		}
	}
	api := httpapi.New(deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// SSE responses stay open, so no write timeout.
		IdleTimeout: 60 * time.Second,
		// Request contexts end with the signal context so open streams close.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv = grpc.NewServer()
		health := httpapi.NewGRPCHealth(deps.Ready)
		health.Register(grpcSrv)
		go health.Run(ctx, 10*time.Second)
		go func() {
			log.Info("grpc listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		stop()
	}
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	log.Info("stopped")
	return runErr
}
