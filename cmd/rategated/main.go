// SPDX-License-Identifier: MIT

// Command rategated runs the pricing cache daemon: an HTTP front end over a
// request-coalescing cache that shares one Redis store with its peers.
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

	"golang.org/x/sync/errgroup"

	"github.com/stayware/rategate/internal/api"
	"github.com/stayware/rategate/internal/breaker"
	"github.com/stayware/rategate/internal/coalesce"
	"github.com/stayware/rategate/internal/config"
	"github.com/stayware/rategate/internal/lease"
	rglog "github.com/stayware/rategate/internal/log"
	"github.com/stayware/rategate/internal/pricing"
	"github.com/stayware/rategate/internal/rendezvous"
	"github.com/stayware/rategate/internal/store"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownGrace = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()

	rglog.Configure(rglog.Config{
		Level:   cfg.LogLevel,
		Service: "rategate",
		Version: version,
	})
	logger := rglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewRedisStore(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, rglog.WithComponent("store"))
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.connect_failed").
			Str("addr", cfg.RedisAddr).
			Msg("cannot reach shared store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()

	cache := coalesce.New(
		st,
		lease.NewManager(st, cfg.LeaseTTL, cfg.ExtendInterval, rglog.WithComponent("lease")),
		rendezvous.New(st, cfg.FollowerTimeout, rglog.WithComponent("rendezvous")),
		breaker.New("pricing-upstream", cfg.BreakerThreshold, cfg.BreakerCooldown),
		coalesce.Config{
			FreshTTL:        cfg.FreshTTL,
			StaleTTL:        cfg.StaleTTL,
			FetchBudget:     cfg.FetchBudget,
			FollowerTimeout: cfg.FollowerTimeout,
			FollowerRetries: cfg.FollowerRetries,
			RetryBackoff:    cfg.RetryBackoff,
		},
		rglog.WithComponent("coalesce"),
	)

	oracle := pricing.NewClient(cfg.UpstreamURL, cfg.UpstreamToken, cfg.UpstreamRate, cfg.UpstreamBurst, rglog.WithComponent("upstream"))
	svc := pricing.NewService(cache, oracle, rglog.WithComponent("pricing"))
	server := api.NewServer(svc, st, rglog.WithComponent("api"))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("event", "daemon.listening").
			Str("addr", cfg.ListenAddr).
			Msg("serving pricing API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		logger.Info().Str("event", "daemon.shutdown").Msg("draining connections")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("daemon exited with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.stopped").Msg("shutdown complete")
}
