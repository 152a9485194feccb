package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/contributor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting options service",
		"port", cfg.Server.Port,
		"catalog", cfg.Index.CatalogPath,
	)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	catalog, err := contributor.LoadCatalog(cfg.Index.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	contributors := []contributor.Contributor{catalog}

	checker := health.NewChecker()

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		contributors = append(contributors, contributor.NewPostgres(pg.DB, cfg.Postgres.Table))
		checker.Register("postgres", health.Ping(pg.Ping, health.StatusDown))
		slog.Info("postgres contributor enabled", "table", cfg.Postgres.Table)
	}

	tok := tokenizer.New(tokenizer.LoadStopWordsOrEmpty(cfg.Index.StopWordsPath), tokenizer.SnowballStem)
	engine := indexer.NewEngine(cfg.Index, tok, m, contributors...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Index.WarmOnStart {
		if _, err := engine.EnsureBuilt(ctx); err != nil {
			slog.Warn("initial index build failed, will retry on first query", "error", err)
		}
	}

	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Stats()
		switch engine.State() {
		case indexer.StateReady:
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("generation %d, %d words", stats.Generation, stats.Words)}
		case indexer.StateBuilding:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "building"}
		default:
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not built"}
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Invalidation.KafkaEnabled {
		groupID := cfg.Kafka.ConsumerGroup + "-" + uuid.NewString()
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.OptionsChanged, groupID, consumer.HandleMessage(engine))
		ic := consumer.New(kc)
		g.Go(func() error { return ic.Start(gctx) })
		slog.Info("kafka invalidation enabled",
			"topic", cfg.Kafka.Topics.OptionsChanged,
			"group", groupID,
		)
	}

	if cfg.Invalidation.RedisEnabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		sub, err := redisClient.Subscribe(ctx, cfg.Invalidation.RedisChannel)
		if err != nil {
			slog.Error("failed to subscribe to invalidation channel", "error", err)
			os.Exit(1)
		}
		defer sub.Close()
		checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
		listener := consumer.NewRedisListener(sub.Messages(), engine)
		g.Go(func() error { return listener.Start(gctx) })
		slog.Info("redis invalidation enabled", "channel", cfg.Invalidation.RedisChannel)
	}

	if cfg.Index.WatchCatalog {
		watcher := consumer.NewCatalogWatcher(catalog, engine, 0)
		g.Go(func() error { return watcher.Start(gctx) })
	}

	exec := executor.New(engine, parser.New(cfg.Search), m)
	h := handler.New(exec, highlight.New(tok), engine, catalog)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		g.Go(func() error { return limiter.Run(gctx, 5*time.Minute) })
		chain = middleware.RateLimit(limiter)(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.NewCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("options service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("options service stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("options service stopped")
}
