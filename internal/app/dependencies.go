package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/storefront/internal/storage/redis"
)

// runtimeDependencies содержит репозитории и ресурсы, выбранные по конфигурации.
type runtimeDependencies struct {
	customers       domain.CustomerRepository
	products        domain.ProductRepository
	orders          domain.OrderRepository
	transactor      domain.Transactor
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository

	// idempotencyCleanup: нужен ли воркер очистки. Redis удаляет ключи сам.
	idempotencyCleanup bool

	checkers map[string]healthcheck.Checker
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (d *runtimeDependencies) addCloser(name string, fn func() error) {
	d.closers = append(d.closers, namedCloser{name: name, close: fn})
}

// close освобождает ресурсы в обратном порядке.
func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.close(); err != nil {
			logger.WithError(err).WithField("resource", c.name).Warn("failed to close resource")
		}
	}
	d.closers = nil
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]healthcheck.Checker)}

	if err := initStorage(ctx, cfg, logger, deps); err != nil {
		deps.close(logger)
		return nil, err
	}
	if err := initIdempotencyStore(ctx, cfg, logger, deps); err != nil {
		deps.close(logger)
		return nil, err
	}
	return deps, nil
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry, deps *runtimeDependencies) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		deps.customers = memory.NewCustomerRepository(store)
		deps.products = memory.NewProductRepository(store)
		deps.orders = memory.NewOrderRepository(store)
		deps.transactor = store
		deps.outboxRepo = memory.NewOutboxRepository(store)
		deps.idempotencyRepo = memory.NewIdempotencyRepository()
		deps.idempotencyCleanup = true
		logger.Info("using in-memory storage")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required for %s storage driver", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		deps.addCloser("postgres", store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}

		deps.customers = postgres.NewCustomerRepository(store)
		deps.products = postgres.NewProductRepository(store)
		deps.orders = postgres.NewOrderRepository(store)
		deps.transactor = store
		deps.outboxRepo = postgres.NewOutboxRepository(store)
		deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
		deps.idempotencyCleanup = true
		deps.checkers["postgres"] = healthcheck.NewPingChecker("postgres", store.Ping)
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("using postgres storage")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// initIdempotencyStore переключает ключи идемпотентности на Redis, если он настроен.
func initIdempotencyStore(ctx context.Context, cfg Config, logger *log.Entry, deps *runtimeDependencies) error {
	if cfg.RedisAddr == "" {
		return nil
	}

	client, err := redisstore.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	deps.addCloser("redis", client.Close)

	deps.idempotencyRepo = redisstore.NewIdempotencyRepository(client, "")
	deps.idempotencyCleanup = false
	deps.checkers["redis"] = healthcheck.NewOptionalChecker("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	logger.WithField("addr", cfg.RedisAddr).Info("using redis for idempotency keys")
	return nil
}
