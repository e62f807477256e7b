package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"CryptoVision/internal/domain/repository"
	domsvc "CryptoVision/internal/domain/service"
	"CryptoVision/internal/handler/api"
	internalrepo "CryptoVision/internal/repository"
	"CryptoVision/internal/service/ratelimit"
	"CryptoVision/internal/services/regression"
	"CryptoVision/internal/usecase"
	pkgch "CryptoVision/pkg/clickhouse"
	"CryptoVision/pkg/config"
	xhttp "CryptoVision/pkg/http"
	pkgkafka "CryptoVision/pkg/kafka"
	applogger "CryptoVision/pkg/logger"
	"CryptoVision/pkg/metrics"
	"CryptoVision/pkg/server"
)

// trainingTimeout bounds loading and fitting every configured asset.
const trainingTimeout = 30 * time.Minute

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvidePrometheusRegistry creates the registry every collector registers on.
func ProvidePrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideDatasetSource creates the CSV series loader.
func ProvideDatasetSource(l *applogger.Logger, m repository.Metrics) repository.DatasetSource {
	src := internalrepo.NewCSVDatasetSource()
	src.SetLogger(l)
	src.SetMetrics(m)
	return src
}

// ProvideRegressor selects the model family from config.
func ProvideRegressor(cfg *config.Config) domsvc.Regressor {
	if cfg.Model.Type == regression.LinearName {
		return regression.NewLinear()
	}
	return regression.NewForest(regression.ForestConfig{
		Trees:          cfg.Model.Trees,
		Seed:           cfg.Model.Seed,
		MaxDepth:       cfg.Model.MaxDepth,
		MinSamplesLeaf: cfg.Model.MinSamplesLeaf,
		Workers:        cfg.Model.Workers,
	})
}

// ProvideTrainer creates the split/fit/evaluate use case.
func ProvideTrainer(cfg *config.Config, reg domsvc.Regressor, l *applogger.Logger, m repository.Metrics) *usecase.Trainer {
	t := usecase.NewTrainer(reg, cfg.Model.TestRatio, cfg.Model.Seed)
	t.SetLogger(l)
	t.SetMetrics(m)
	return t
}

// closer returns a wire cleanup that closes c and logs any failure.
func closer(l *applogger.Logger, name string, c interface{ Close() error }) func() {
	return func() {
		if err := c.Close(); err != nil {
			l.Warn(name+" close error", applogger.Error(err))
		}
	}
}

func noCleanup() {}

// ProvideClickHouseClient creates a ClickHouse client and its evaluation
// table. It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, noCleanup, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.EvaluationSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready",
		applogger.String("database", cfg.ClickHouse.Database),
		applogger.String("table", cfg.ClickHouse.Table),
	)
	return client, closer(l, "clickhouse", client), nil
}

// ProvideEvaluationStore returns nil when ClickHouse is disabled.
func ProvideEvaluationStore(cfg *config.Config, client *pkgch.Client, l *applogger.Logger) repository.EvaluationStore {
	if client == nil {
		return nil
	}
	store := internalrepo.NewCHEvaluationStore(client.DB(), cfg.ClickHouse.Database+"."+cfg.ClickHouse.Table)
	store.SetLogger(l)
	return store
}

// ProvideRegistry trains every configured asset. Persisting the holdout
// reports is best effort.
func ProvideRegistry(
	cfg *config.Config,
	src repository.DatasetSource,
	trainer *usecase.Trainer,
	store repository.EvaluationStore,
	l *applogger.Logger,
) (*usecase.Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), trainingTimeout)
	defer cancel()

	reg, err := usecase.BuildRegistry(ctx, cfg.Assets, src, trainer, l)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	if store != nil {
		if err := store.SaveEvaluations(ctx, reg.Evaluations("asset")); err != nil {
			l.Warn("save evaluations failed", applogger.Error(err))
		}
	}
	return reg, nil
}

// ProvidePredictor creates the prediction use case.
func ProvidePredictor(reg *usecase.Registry) *usecase.Predictor {
	return usecase.NewPredictor(reg)
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka
// is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, noCleanup, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, closer(l, "kafka producer", producer), nil
}

// ProvidePredictionPublisher streams served predictions to Kafka, or
// discards them when Kafka is disabled.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.PredictionPublisher {
	if producer == nil {
		return internalrepo.NopPredictionPublisher{}
	}
	return internalrepo.NewKafkaPredictionPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisClient connects to Redis for the shared rate limiter. It
// returns nil unless that backend is selected.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*redis.Client, func(), error) {
	rl := cfg.RateLimit
	if !rl.Enabled || rl.Backend != "redis" {
		return nil, noCleanup, nil
	}
	client, err := ratelimit.NewRedisClient(context.Background(), rl.Redis.Addr, rl.Redis.Password, rl.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	return client, closer(l, "redis", client), nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) ratelimit.Limiter {
	rl := cfg.RateLimit
	switch {
	case !rl.Enabled:
		return nil
	case client != nil:
		return ratelimit.NewRedisLimiter(client, rl.Redis.Prefix, rl.Burst, rl.Window)
	default:
		return ratelimit.NewMemoryLimiter(rl.RPS, rl.Burst)
	}
}

// ProvidePredictHandler creates the HTTP handler.
func ProvidePredictHandler(
	l *applogger.Logger,
	predictor *usecase.Predictor,
	pub repository.PredictionPublisher,
	limiter ratelimit.Limiter,
	m repository.Metrics,
) *api.PredictEchoHandler {
	h := api.NewPredictEchoHandler(l, predictor)
	h.SetPublisher(pub)
	h.SetLimiter(limiter)
	h.SetMetrics(m)
	return h
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.PredictEchoHandler, l *applogger.Logger, reg *prometheus.Registry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, reg, cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, reg *usecase.Registry, srv *xhttp.Server) *server.App {
	return server.New(cfg, l, reg, srv)
}
