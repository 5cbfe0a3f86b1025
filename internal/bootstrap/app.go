package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"paperchat/internal/ai"
	appsvc "paperchat/internal/app"
	"paperchat/internal/cache"
	"paperchat/internal/config"
	"paperchat/internal/logger"
	"paperchat/internal/metrics"
	"paperchat/internal/model"
	"paperchat/internal/pkg/pdfextract"
	mysqlClient "paperchat/internal/platform/mysql"
	rabbitmqClient "paperchat/internal/platform/rabbitmq"
	redisClient "paperchat/internal/platform/redis"
	"paperchat/internal/repository"
	"paperchat/internal/transport/http/handler"
	"paperchat/internal/worker"
)

type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Store   *repository.DocumentStore
	LLM     *ai.OllamaClient
	Metrics *metrics.Metrics

	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	ExchangeWorker *worker.ExchangePersistWorker

	Ingestion *appsvc.IngestionService
	Query     *appsvc.QueryService
	Papers    *appsvc.PaperService
	History   *appsvc.HistoryService

	StartedAt time.Time
}

// New opens the document store, connects every enabled optional dependency
// and wires the services. Redis, MySQL and RabbitMQ are only dialled when
// enabled; an enabled dependency that cannot be reached is fatal.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config:    cfg,
		Log:       log,
		StartedAt: time.Now(),
	}

	store, err := repository.OpenDocumentStore(cfg.Store.SnapshotPath, logger.Component(log, "store"))
	if err != nil {
		return nil, err
	}
	a.Store = store

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		a.Metrics.RegisterDocumentCount(store.Len)
	}

	if err := a.connectInfra(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.LLM = ai.NewOllamaClient(ai.OllamaConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.GenerationTimeout(),
	})
	embedder := ai.NewCommandEmbedder(ai.CommandEmbedderConfig{
		Command: cfg.Embedding.Command,
		Args:    []string{cfg.Embedding.ScriptPath},
		WorkDir: cfg.Embedding.WorkDir,
		Env:     cfg.Embedding.Env,
		Timeout: cfg.EmbeddingTimeout(),
	})

	// Optional collaborators stay nil interfaces when their feature is off.
	var (
		paperCache  appsvc.PaperListCache
		publisher   appsvc.ExchangePublisher
		reader      appsvc.ExchangeReader
		pipelineObs appsvc.PipelineMetrics
	)
	if a.Redis != nil {
		paperCache = cache.NewPaperListCache(a.Redis, time.Duration(cfg.Redis.PaperListTTLSeconds)*time.Second)
	}
	if a.MQConn != nil {
		publisher = rabbitmqClient.NewExchangePublisher(a.MQConn, cfg.RabbitMQ.ExchangePersistQueue)
	}
	if a.MySQL != nil {
		reader = repository.NewExchangeRepository(a.MySQL)
	}
	if a.Metrics != nil {
		pipelineObs = a.Metrics
	}

	a.Ingestion = appsvc.NewIngestionService(
		pdfextract.NewExtractor(),
		embedder,
		store,
		paperCache,
		pipelineObs,
		logger.Component(log, "ingestion"),
	)
	a.Query = appsvc.NewQueryService(
		store,
		a.LLM,
		publisher,
		pipelineObs,
		logger.Component(log, "query"),
		appsvc.QueryConfig{
			MaxContextLength: cfg.LLM.MaxContextLength,
			Timeout:          cfg.GenerationTimeout(),
			Options: ai.GenerateOptions{
				NumPredict:  cfg.LLM.NumPredict,
				Temperature: cfg.LLM.Temperature,
				TopP:        cfg.LLM.TopP,
				TopK:        cfg.LLM.TopK,
			},
		},
	)
	a.Papers = appsvc.NewPaperService(store, paperCache, logger.Component(log, "papers"))
	a.History = appsvc.NewHistoryService(store, reader)

	log.Info().
		Str("snapshot", store.Path()).
		Int("documents", store.Len()).
		Str("model", cfg.LLM.Model).
		Bool("redis", a.Redis != nil).
		Bool("mysql", a.MySQL != nil).
		Bool("rabbitmq", a.MQConn != nil).
		Msg("application ready")
	return a, nil
}

func (a *App) connectInfra(ctx context.Context) error {
	cfg := a.Config

	if cfg.MySQL.Enabled {
		db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
		if err != nil {
			return err
		}
		a.MySQL = db
		if err := db.AutoMigrate(&model.Exchange{}); err != nil {
			return fmt.Errorf("auto migrate tables failed: %w", err)
		}
	}

	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = client
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return err
		}
		a.MQConn = conn

		// Without a database the queue is still filled; another instance may drain it.
		if a.MySQL != nil {
			w := worker.NewExchangePersistWorker(
				conn,
				repository.NewExchangeRepository(a.MySQL),
				cfg.RabbitMQ.ExchangePersistQueue,
				logger.Component(a.Log, "exchange-worker"),
			)
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("start exchange worker failed: %w", err)
			}
			a.ExchangeWorker = w
		}
	}
	return nil
}

// HealthChecks returns a probe per external dependency in use.
func (a *App) HealthChecks() map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"ollama": func(ctx context.Context) error { return a.LLM.Ping(ctx) },
	}
	if a.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := a.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if a.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

func (a *App) Close() error {
	var closeErr error
	if a.ExchangeWorker != nil {
		a.ExchangeWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		if err := mysqlClient.Close(a.MySQL); err != nil {
			closeErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
