package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/storage/memory"
	"github.com/oyushop/storefront/internal/storage/postgres"
)

// Dependencies содержит хранилища, с которыми работают сервисы витрины.
type Dependencies struct {
	Catalog       domain.CatalogRepository
	Orders        domain.OrderRepository
	Promos        domain.PromoRepository
	InventoryLogs domain.InventoryLogRepository
	Outbox        domain.OutboxRepository
	Timeline      domain.TimelineRepository

	// Store не nil только при работающем PostgreSQL.
	Store *postgres.Store

	Logger *log.Entry
}

// NewDependencies подключается к PostgreSQL, а при недоступности базы
// переводит витрину в in-memory режим с демо-каталогом: магазин должен
// продолжать принимать заказы даже без хранилища.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN != "" {
		store, err := openPostgres(ctx, cfg.PostgresDSN)
		if err == nil {
			logger.Info("postgres storage initialized")
			return &Dependencies{
				Catalog:       postgres.NewCatalogRepository(store),
				Orders:        postgres.NewOrderRepository(store),
				Promos:        postgres.NewPromoRepository(store),
				InventoryLogs: postgres.NewInventoryLogRepository(store),
				Outbox:        postgres.NewOutboxRepository(store),
				Timeline:      postgres.NewTimelineRepository(store),
				Store:         store,
				Logger:        logger,
			}
		}
		logger.WithError(err).Warn("postgres недоступен, переключаемся на in-memory хранилище")
	} else {
		logger.Warn("STOREFRONT_POSTGRES_DSN не задан, используем in-memory хранилище")
	}

	deps := &Dependencies{
		Catalog:       memory.NewCatalogRepository(),
		Orders:        memory.NewOrderRepository(),
		Promos:        memory.NewPromoRepository(),
		InventoryLogs: memory.NewInventoryLogRepository(),
		Outbox:        memory.NewOutboxRepository(),
		Timeline:      memory.NewTimelineRepository(),
		Logger:        logger,
	}
	if err := memory.SeedCatalog(deps.Catalog, memory.DemoProducts()); err != nil {
		logger.WithError(err).Warn("failed to seed demo catalog")
	}
	return deps
}

func openPostgres(ctx context.Context, dsn string) (*postgres.Store, error) {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
