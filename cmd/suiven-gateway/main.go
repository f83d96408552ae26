// Command suiven-gateway serves cached Suiven reads over HTTP, builds unsigned
// write requests and settles writes executed by the caller's wallet.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/suiven-network/suiven/internal/actions"
	"github.com/suiven-network/suiven/internal/cache"
	"github.com/suiven-network/suiven/internal/changes"
	"github.com/suiven-network/suiven/internal/config"
	"github.com/suiven-network/suiven/internal/httpapi"
	"github.com/suiven-network/suiven/internal/metrics"
	"github.com/suiven-network/suiven/internal/profile"
	"github.com/suiven-network/suiven/internal/query"
	"github.com/suiven-network/suiven/internal/refresher"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/txbuilder"
	"github.com/suiven-network/suiven/pkg/logger"
)

type lifecycle interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.NewDefault("suiven-gateway").WithError(err).Fatal("load configuration")
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Component: "suiven-gateway"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector("suiven")
	client, err := sui.NewClient(sui.Config{
		RPCURL:    cfg.RPCURL,
		Timeout:   cfg.RPCTimeout,
		RateLimit: cfg.RPCRateLimit,
		Burst:     cfg.RPCBurst,
		Observer:  collector,
		Logger:    log.Named("sui-client"),
	})
	if err != nil {
		log.WithError(err).Fatal("create ledger client")
	}

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	parser := suiven.NewParser(cfg).WithRejectHook(func(kind suiven.Kind, reason string) {
		collector.RecordParseRejection(string(kind), reason)
	})
	reads := query.New(cfg, client, parser, query.Options{
		Store:    store,
		Recorder: collector,
		Logger:   log.Named("query"),
	})
	if cfg.RedisURL != "" {
		// A shared cache may hold entries from before writes this process never saw.
		if err := reads.InvalidateAll(ctx); err != nil {
			log.WithError(err).Warn("flush query cache")
		}
	}
	bus := changes.NewBus(256, log.Named("changes"))
	detach := reads.Attach(bus)
	defer detach()

	builder := txbuilder.New(cfg, log.Named("txbuilder"))
	writes := actions.New(builder, nil, bus, actions.Options{
		Recorder: collector,
		Logger:   log.Named("actions"),
	})

	services := []lifecycle{
		refresher.New(reads, bus, cfg.RefreshSchedule, log.Named("refresher")),
	}
	if cfg.WebsocketURL != "" {
		stream := sui.NewSubscriber(cfg.WebsocketURL, log.Named("sui-subscriber"))
		services = append(services, refresher.NewWatcher(stream, cfg.EventCreatedType(), bus, log.Named("event-watcher")))
	}
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			log.WithError(err).WithField("service", svc.Name()).Fatal("start service")
		}
	}

	server := &http.Server{
		Addr: cfg.GatewayAddr,
		Handler: httpapi.NewHandler(reads, httpapi.Options{
			Profiles: profile.NewStore(cfg.ProfileDir, log.Named("profile")),
			Metrics:  collector,
			Logger:   log.Named("httpapi"),
			Builder:  builder,
			Actions:  writes,
			Waiter:   client,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.GatewayAddr).Info("gateway listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("gateway server")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("gateway shutdown")
	}
	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(shutdownCtx); err != nil {
			log.WithError(err).WithField("service", services[i].Name()).Warn("stop service")
		}
	}
}

// openStore uses Redis when configured and falls back to process memory.
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (cache.Store, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStore(), func() {}
	}
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := cache.NewRedisStore(connectCtx, cfg.RedisURL, "suiven:")
	if err != nil {
		log.WithError(err).Warn("redis unavailable, caching in memory")
		return cache.NewMemoryStore(), func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
}
