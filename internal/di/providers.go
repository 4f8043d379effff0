package di

import (
	"context"
	"fmt"
	"time"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/domain/repository"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/handler/api"
	"BubbleScope/internal/handler/ws"
	internalrepo "BubbleScope/internal/repository"
	"BubbleScope/internal/service/ratelimit"
	"BubbleScope/internal/services/optimizer"
	"BubbleScope/internal/services/paramspace"
	"BubbleScope/internal/services/quality"
	"BubbleScope/internal/services/selection"
	"BubbleScope/internal/services/validation"
	"BubbleScope/internal/usecase"
	"BubbleScope/pkg/cache"
	pkgch "BubbleScope/pkg/clickhouse"
	"BubbleScope/pkg/config"
	xhttp "BubbleScope/pkg/http"
	pkgkafka "BubbleScope/pkg/kafka"
	applogger "BubbleScope/pkg/logger"
	"BubbleScope/pkg/metrics"
	"BubbleScope/pkg/server"
)

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideClickHouseClient connects to ClickHouse. It returns nil when the
// backend is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

func ProvidePriceSource(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.PriceSource {
	if ch == nil {
		return nil
	}
	src := internalrepo.NewCHPriceSource(ch, cfg.ClickHouse.PriceTable)
	src.SetLogger(l)
	return src
}

// ProvideSelectionStore creates the result tables and returns the store.
func ProvideSelectionStore(ch *pkgch.Client, cfg *config.Config) (repository.SelectionStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHSelectionStore(ch, cfg.ClickHouse.ResultTable, cfg.ClickHouse.PriceTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.Producer.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoCreateTopics(cfg.Environment == "development"),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideCache layers a local LRU over Redis, or uses the LRU alone when
// Redis is off.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Redis.LocalSize),
			cache.WithMemoryTTL(cfg.Redis.LocalTTL),
		), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cfg.Redis.LocalSize, cfg.Redis.LocalTTL), nil
}

func ProvideResultCache(c cache.Service, cfg *config.Config) repository.ResultCache {
	return internalrepo.NewResultCache(c, cfg.Fitting.CacheTTL, 0)
}

func ProvideHub(cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l, ws.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
}

// ProvideResultPublisher fans reports out to websocket subscribers and,
// when enabled, to Kafka behind a circuit breaker.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer, hub *ws.Hub) repository.ResultPublisher {
	pubs := internalrepo.FanoutPublisher{hub}
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic, internalrepo.BreakerSettings{
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		}))
	}
	return pubs
}

func ProvideThresholds(cfg *config.Config) quality.Thresholds {
	th := quality.DefaultThresholds()
	q := cfg.Fitting.Quality
	if q.HighRSquared > 0 {
		th.HighRSquared = q.HighRSquared
	}
	if q.AcceptableRSquared > 0 {
		th.AcceptableRSquared = q.AcceptableRSquared
	}
	if q.BoundaryTolerance > 0 {
		th.BoundaryTolerance = q.BoundaryTolerance
	}
	return th
}

func ProvideSelector(cfg *config.Config, th quality.Thresholds, l *applogger.Logger) domsvc.Selector {
	return selection.New(
		selection.WithWorkers(cfg.Fitting.Workers),
		selection.WithFitter(optimizer.New(optimizer.WithMaxIterations(cfg.Fitting.MaxIterations))),
		selection.WithEvaluator(quality.NewEvaluator(th)),
		selection.WithStabilityRadius(cfg.Fitting.StabilityRadius),
		selection.WithDefaultTimeout(cfg.Fitting.DefaultTimeout),
		selection.WithLogger(l),
	)
}

func ProvideHistory(cfg *config.Config) *paramspace.FittingHistory {
	return paramspace.NewFittingHistory(cfg.Fitting.HistoryLimit)
}

func ProvideValidator(sel domsvc.Selector, cfg *config.Config, l *applogger.Logger) domsvc.EpisodeValidator {
	return validation.New(sel, validation.WithSeed(cfg.Fitting.Seed), validation.WithLogger(l))
}

func ProvideFitSeriesUseCase(
	cfg *config.Config,
	prices repository.PriceSource,
	sel domsvc.Selector,
	history *paramspace.FittingHistory,
	store repository.SelectionStore,
	pub repository.ResultPublisher,
	rc repository.ResultCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.FitSeriesUseCase {
	return usecase.NewFitSeriesUseCase(usecase.FitSeriesDeps{
		Prices:    prices,
		Selector:  sel,
		History:   history,
		Store:     store,
		Publisher: pub,
		Cache:     rc,
		Metrics:   m,
		Log:       l,
	},
		usecase.WithSeed(cfg.Fitting.Seed),
		usecase.WithDefaultStrategy(models.Strategy(cfg.Fitting.DefaultStrategy)),
	)
}

func ProvideValidateEpisodeUseCase(prices repository.PriceSource, v domsvc.EpisodeValidator, l *applogger.Logger) *usecase.ValidateEpisodeUseCase {
	return usecase.NewValidateEpisodeUseCase(prices, v, l)
}

func ProvideResultsUseCase(history *paramspace.FittingHistory, store repository.SelectionStore) *usecase.ResultsUseCase {
	return usecase.NewResultsUseCase(history, store)
}

// ProvideLimiter returns nil when throttling is disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
}

func ProvideFittingHandler(
	l *applogger.Logger,
	fit *usecase.FitSeriesUseCase,
	val *usecase.ValidateEpisodeUseCase,
	res *usecase.ResultsUseCase,
	lim *ratelimit.Limiter,
) *api.FittingHandler {
	var opts []api.Option
	if lim != nil {
		opts = append(opts, api.WithRateLimit(lim.Middleware()))
	}
	return api.NewFittingHandler(l, fit, val, res, opts...)
}

func ProvideHealthHandler(ch *pkgch.Client, store repository.SelectionStore) *api.HealthHandler {
	checks := map[string]api.HealthCheck{}
	if store != nil {
		checks["clickhouse"] = store.Health
	} else if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	return api.NewHealthHandler(checks)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, fh *api.FittingHandler, hh *api.HealthHandler, hub *ws.Hub) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{fh, hh, hub},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp attaches the error digest to Kafka and registers resources in
// the order they must be released.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	pub repository.ResultPublisher,
	store repository.SelectionStore,
	c cache.Service,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AttachDigest(&applogger.DigestConfig{Topic: cfg.Kafka.LogTopic, Publisher: producer})
	}

	app := server.New(l, srv,
		server.Closer{Name: "log digest", Close: func() error { l.DetachDigest(); return nil }},
		server.Closer{Name: "publishers", Close: pub.Close},
		server.Closer{Name: "cache", Close: c.Close},
	)
	if store != nil {
		app.OnShutdown(server.Closer{Name: "clickhouse", Close: store.Close})
	}
	return app
}
