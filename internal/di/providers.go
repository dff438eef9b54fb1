package di

import (
	"context"
	"fmt"
	"time"

	domrepo "AlphaScout/internal/domain/repository"
	"AlphaScout/internal/handler/api"
	internalrepo "AlphaScout/internal/repository"
	"AlphaScout/internal/scout"
	chainscout "AlphaScout/internal/scout/chain"
	contractscout "AlphaScout/internal/scout/contract"
	defiscout "AlphaScout/internal/scout/defi"
	marketscout "AlphaScout/internal/scout/market"
	sentimentscout "AlphaScout/internal/scout/sentiment"
	"AlphaScout/internal/service/cooldown"
	"AlphaScout/internal/usecase"
	pkgamqp "AlphaScout/pkg/amqp"
	"AlphaScout/pkg/cache"
	"AlphaScout/pkg/config"
	xhttp "AlphaScout/pkg/http"
	"AlphaScout/pkg/logger"
	"AlphaScout/pkg/metrics"
	pkgpg "AlphaScout/pkg/postgres"
	"AlphaScout/pkg/server"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePostgresClient opens the pool and ensures the signal schema exists.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithMaxConnections(cfg.Postgres.MaxConns, cfg.Postgres.MinConns),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.Postgres.Table)); err != nil {
		client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the idempotent signal store.
func ProvideSignalStore(client *pkgpg.Client, cfg *config.Config) domrepo.SignalStore {
	return internalrepo.NewPostgresSignalStore(client, cfg.Postgres.Table)
}

// ProvideSignalPersister creates the queue-to-store handler.
func ProvideSignalPersister(cfg *config.Config, store domrepo.SignalStore, m domrepo.Metrics, log *logger.Logger) *usecase.SignalPersister {
	return usecase.NewSignalPersister(cfg.AMQP.Queue, store, m, log)
}

// ProvideAMQPConsumer creates the queue consumer for the persister.
func ProvideAMQPConsumer(cfg *config.Config, persister *usecase.SignalPersister) (*pkgamqp.Consumer, error) {
	return pkgamqp.NewConsumer(persister,
		pkgamqp.WithURL(cfg.AMQP.URL),
		pkgamqp.WithReconnectDelay(cfg.AMQP.ReconnectDelay),
		pkgamqp.WithPrefetch(cfg.AMQP.Prefetch),
	)
}

// ProvideSignalHistory creates the read-only history view.
func ProvideSignalHistory(store domrepo.SignalStore) *usecase.SignalHistory {
	return usecase.NewSignalHistory(store)
}

// ProvideAPIHandler creates the HTTP handler.
func ProvideAPIHandler(log *logger.Logger, history *usecase.SignalHistory) xhttp.Handler {
	return api.NewSignalsHandler(log, history)
}

// ProvideHTTPServer creates the metrics/API server.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, log *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(log),
	)
}

// ProvidePersisterApp assembles the persistence consumer process.
func ProvidePersisterApp(
	cfg *config.Config,
	log *logger.Logger,
	consumer *pkgamqp.Consumer,
	httpServer *xhttp.Server,
	store domrepo.SignalStore,
) *server.App {
	return server.New(cfg, log,
		server.WithRunner(server.NewConsumerRunner(consumer)),
		server.WithHTTP(httpServer),
		server.WithCloser(store.Close),
	)
}

// InitializeScout assembles a scout process for the named detector variant.
// Unlike the persister this is hand-wired: the detector choice is a runtime
// argument.
func InitializeScout(cfg *config.Config, name string) (*server.App, error) {
	log, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	m := ProvideMetrics()

	publisher, err := pkgamqp.NewPublisher(
		pkgamqp.WithURL(cfg.AMQP.URL),
		pkgamqp.WithQueue(cfg.AMQP.Queue),
		pkgamqp.WithReconnectDelay(cfg.AMQP.ReconnectDelay),
		pkgamqp.WithPublishTimeout(cfg.AMQP.PublishTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("signal bus: %w", err)
	}
	signalPublisher := internalrepo.NewAMQPSignalPublisher(publisher)

	scoutCfg, interval := scoutConfig(cfg, name)
	base := scout.NewBase(name, scoutCfg, log)

	det, err := newDetector(name, base)
	if err != nil {
		_ = signalPublisher.Close()
		return nil, err
	}

	opts := []scout.RunnerOption{scout.WithInterval(interval)}
	guard, closeCache := provideCooldown(cfg, log)
	if guard != nil {
		opts = append(opts, scout.WithFilter(guard))
	}

	runner := scout.NewRunner(base, det, signalPublisher, m, log, opts...)

	app := server.New(cfg, log,
		server.WithRunner(runner),
		server.WithCloser(func() { _ = signalPublisher.Close() }),
		server.WithCloser(closeCache),
	)
	return app, nil
}

// provideCooldown builds the publish cooldown guard. Redis when enabled and
// reachable, in-memory otherwise; never fatal.
func provideCooldown(cfg *config.Config, log *logger.Logger) (*cooldown.Guard, func()) {
	var backend cache.Cache
	if cfg.Redis.Enabled {
		r, err := cache.NewRedis(
			cache.WithAddr(cfg.Redis.Addr),
			cache.WithAuth(cfg.Redis.Password, cfg.Redis.DB),
		)
		if err != nil {
			log.Warn("redis unavailable, using in-memory cooldown", logger.Error(err))
		} else {
			backend = r
		}
	}
	if backend == nil {
		backend = cache.NewMemory()
	}
	return cooldown.New(backend, cfg.Redis.CooldownTTL, log), func() { _ = backend.Close() }
}

func newDetector(name string, base *scout.Base) (scout.Detector, error) {
	switch name {
	case "market":
		return marketscout.New(base), nil
	case "defi":
		return defiscout.New(base), nil
	case "chain":
		return chainscout.New(base), nil
	case "contract":
		return contractscout.New(base), nil
	case "sentiment":
		return sentimentscout.New(base), nil
	default:
		return nil, fmt.Errorf("unknown scout %q (want market, defi, chain, contract or sentiment)", name)
	}
}

// scoutConfig flattens the typed configuration into the key/value map each
// detector interprets lazily.
func scoutConfig(cfg *config.Config, name string) (scout.Config, time.Duration) {
	switch name {
	case "market":
		c := cfg.Scouts.Market
		return scout.Config{
			"pairs":          c.Pairs,
			"min_profit_pct": c.MinProfitPct,
			"websocket_url":  c.WebSocketURL,
		}, c.Interval
	case "defi":
		c := cfg.Scouts.DeFi
		return scout.Config{
			"pools_url": c.PoolsURL,
			"chains":    c.Chains,
			"min_tvl":   c.MinTVL,
			"min_apy":   c.MinAPY,
		}, c.Interval
	case "chain":
		c := cfg.Scouts.Chain
		return scout.Config{
			"explorer_url":  c.ExplorerURL,
			"api_key":       c.APIKey,
			"chain_name":    c.ChainName,
			"addresses":     c.Addresses,
			"min_value_eth": c.MinValueETH,
		}, c.Interval
	case "contract":
		c := cfg.Scouts.Contract
		return scout.Config{
			"chain":          c.Chain,
			"addresses":      c.Addresses,
			"goplus_url":     c.GoPlusURL,
			"goplus_key":     c.GoPlusKey,
			"etherscan_url":  c.EtherscanURL,
			"etherscan_key":  c.EtherscanKey,
			"risk_threshold": c.RiskThreshold,
		}, c.Interval
	case "sentiment":
		c := cfg.Scouts.Sentiment
		return scout.Config{
			"trending_url": c.TrendingURL,
			"symbols":      c.Symbols,
			"min_score":    c.MinScore,
		}, c.Interval
	default:
		return scout.Config{}, 0
	}
}
