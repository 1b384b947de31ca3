package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fairdex-labs/engine/internal/adapter/cache"
	"github.com/fairdex-labs/engine/internal/adapter/journal"
	"github.com/fairdex-labs/engine/internal/adapter/pg"
	"github.com/fairdex-labs/engine/internal/adapter/stream"
	api "github.com/fairdex-labs/engine/internal/api/http"
	"github.com/fairdex-labs/engine/internal/api/ws"
	"github.com/fairdex-labs/engine/internal/config"
	"github.com/fairdex-labs/engine/internal/core"
	"github.com/fairdex-labs/engine/internal/port"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo port.Repository
	if !cfg.Pg.Disable {
		pgRepo, err := pg.NewPgRepo(ctx, cfg.Pg.DSN())
		if err != nil {
			logger.Fatal("connect postgres", zap.Error(err))
		}
		defer pgRepo.Close()
		repo = pgRepo
	}

	var bookCache port.Cache
	if !cfg.Redis.Disable {
		bookCache = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	}

	feed := ws.NewHub(logger)
	publishers := stream.Fanout{feed}
	if !cfg.Kafka.Disable {
		publishers = append(publishers, stream.NewKafkaPublisher(
			cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.ForfeitTopic, cfg.Kafka.FlagTopic,
		))
	}
	defer publishers.Close()

	var jnl port.Journal
	if !cfg.Journal.Disable {
		j, err := journal.Open(cfg.Journal.Dir)
		if err != nil {
			logger.Fatal("open journal", zap.Error(err))
		}
		defer j.Close()
		jnl = j
	}

	minStake, err := cfg.Auction.MinStakeDecimal()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	eng := core.NewEngine(core.Options{
		CommitWindow: cfg.Auction.CommitWindow,
		RevealWindow: cfg.Auction.RevealWindow,
		MinStake:     minStake,
		GuardSpacing: cfg.Guard.MinSpacing,
	}, repo, bookCache, publishers, jnl, logger)

	if jnl != nil {
		if err := eng.Replay(ctx); err != nil {
			logger.Fatal("journal replay", zap.Error(err))
		}
		logger.Info("journal replay complete")
	} else if err := eng.Restore(ctx); err != nil {
		logger.Fatal("book restore", zap.Error(err))
	}
	eng.Start(ctx, time.Now())

	go runClock(ctx, eng, feed, cfg.Auction.Tick, logger)

	server := api.NewHTTPServer(eng, feed)
	rateLimit := time.Second / time.Duration(cfg.Server.RateLimit)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(rateLimit),
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

// runClock drives batch transitions and pushes book snapshots to the feed.
// A crossed book is fatal: the process stops admitting and clearing rather
// than emit inconsistent trades.
func runClock(ctx context.Context, eng *core.Engine, feed *ws.Hub, tick time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := eng.Advance(ctx, now); err != nil {
				logger.Fatal("batch clearing halted", zap.Error(err))
			}
			snap, err := eng.GetOrderBook(ctx, now)
			if err != nil {
				logger.Warn("book snapshot", zap.Error(err))
				continue
			}
			if err := feed.BroadcastBook(snap); err != nil {
				logger.Warn("broadcast book", zap.Error(err))
			}
		}
	}
}
