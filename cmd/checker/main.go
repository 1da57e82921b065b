package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/cache"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/handler"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/store"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/worker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/rules"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting checker service",
		"port", cfg.Server.Port,
		"rpc_port", cfg.RPC.Port,
		"workers", cfg.Checker.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	engineOpts := []checker.Option{
		checker.WithWorkers(cfg.Checker.Workers),
		checker.WithCompileOptions(terminology.WithMatchTimeout(cfg.Checker.MatchTimeout)),
	}
	if m != nil {
		engineOpts = append(engineOpts, checker.WithMetrics(m))
	}
	engine := checker.New(nil, engineOpts...)

	svcOpts := []checksvc.Option{
		checksvc.WithErrorsOnly(cfg.Checker.ErrorsOnly),
	}
	if cfg.Checker.RulesFile != "" {
		load := rules.Loader(cfg.Checker.RulesFile, rules.WithPrefilter(cfg.Checker.Prefilter))
		if _, err := engine.Reload(ctx, load); err != nil {
			slog.Error("failed to load rules", "path", cfg.Checker.RulesFile, "error", err)
			os.Exit(1)
		}
		svcOpts = append(svcOpts, checksvc.WithLoader(load))
	} else {
		slog.Warn("no rules file configured, terminology check disabled")
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			breaker := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
				OnStateChange: func(name string, to resilience.State) {
					if m != nil {
						m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
					}
				},
			})
			cacheOpts := []cache.Option{cache.WithBreaker(breaker)}
			if m != nil {
				cacheOpts = append(cacheOpts, cache.WithMetrics(m))
			}
			svcOpts = append(svcOpts, checksvc.WithCache(cache.New(redisClient, cfg.Redis.CacheTTL, cacheOpts...)))
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var pg *postgres.Client
	if cfg.Postgres.Host != "" {
		pg, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, report store disabled", "error", err)
		} else {
			defer pg.Close()
			if err := pg.Migrate(store.Migrations, "migrations"); err != nil {
				slog.Error("failed to migrate report store", "error", err)
				os.Exit(1)
			}
			svcOpts = append(svcOpts, checksvc.WithStore(store.New(pg.DB)))
			slog.Info("report store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}

	svc := checksvc.New(engine, svcOpts...)

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Results)
		defer producer.Close()
		w := worker.New(svc, producer, m)
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Units, w.Handle)
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("check worker stopped", "error", err)
			}
		}()
		slog.Info("check worker started", "units_topic", cfg.Kafka.Topics.Units, "results_topic", cfg.Kafka.Topics.Results)
	}

	if cfg.RPC.Port > 0 {
		rpcServer := grpc.NewServer()
		svc.RegisterRPC(rpcServer)
		go func() {
			if err := rpcServer.Serve(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
		defer rpcServer.Stop()
	}

	checks := health.NewChecker(cfg.Server.RequestTimeout)
	checks.Register("rules", func(ctx context.Context) health.ComponentHealth {
		if rs := engine.RuleSet(); rs != nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d rules, version %s", rs.Rules(), rs.Version())}
		}
		if cfg.Checker.RulesFile != "" {
			return health.ComponentHealth{Status: health.StatusDown, Message: "rules not loaded"}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
	})
	var redisPing, pgPing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	if pg != nil {
		pgPing = pg.Ping
	}
	checks.Register("redis", health.Ping(redisPing, false))
	checks.Register("postgres", health.Ping(pgPing, false))

	h := handler.New(svc, cfg.Server.MaxBodyBytes)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.NewRouter(h, handler.RouterConfig{
			Metrics:        m,
			Health:         checks,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("checker service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("checker service stopped")
}
