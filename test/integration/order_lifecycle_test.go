package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/service/checkout"
	"github.com/oyushop/storefront/internal/service/outbox"
	"github.com/oyushop/storefront/internal/service/status"
	"github.com/oyushop/storefront/internal/storage/memory"
)

// capturingPublisher собирает опубликованные сообщения вместо брокера.
type capturingPublisher struct {
	mu       sync.Mutex
	messages []domain.OutboxMessage
}

func (p *capturingPublisher) Publish(msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingPublisher) published() []domain.OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OutboxMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// OrderLifecycleTestSuite проверяет полный путь заказа: размещение,
// смена статусов, события outbox и согласованность остатков.
type OrderLifecycleTestSuite struct {
	suite.Suite
	catalog     domain.CatalogRepository
	orders      domain.OrderRepository
	promos      domain.PromoRepository
	outboxRepo  domain.OutboxRepository
	timeline    domain.TimelineRepository
	checkout    *checkout.Service
	transitions *status.Handler
	publisher   *capturingPublisher
	worker      *outbox.Worker
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	s.catalog = memory.NewCatalogRepository()
	s.orders = memory.NewOrderRepository()
	s.promos = memory.NewPromoRepository()
	s.outboxRepo = memory.NewOutboxRepository()
	s.timeline = memory.NewTimelineRepository()

	s.checkout = checkout.NewServiceWithoutMetrics(s.catalog, s.orders, s.promos, s.outboxRepo, s.timeline, logger)
	s.transitions = status.NewHandlerWithoutMetrics(s.orders, s.catalog, s.outboxRepo, s.timeline, logger)

	s.publisher = &capturingPublisher{}
	s.worker = outbox.NewWorker(s.outboxRepo, s.publisher, outbox.WithLogger(logger))

	now := time.Now().UTC()
	require.NoError(s.T(), s.catalog.Create(domain.Product{
		ID: "stroller", Name: "Хүүхдийн тэрэг", Price: 450000,
		Category: domain.CategoryBaby, Stock: 3, SortOrder: 1,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(s.T(), s.catalog.Create(domain.Product{
		ID: "vitamins", Name: "Ээжийн витамин", Price: 60000,
		Category: domain.CategoryMoms, Stock: 10, SortOrder: 2,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(s.T(), s.promos.Create(domain.PromoCode{
		Code: "EEJ20", Type: domain.PromoTypePercent, Amount: 20,
		Active: true, UsageLimit: 1, CreatedAt: now,
	}))
}

func (s *OrderLifecycleTestSuite) TestSuccessfulPlacementAndDelivery() {
	order, err := s.checkout.PlaceOrder(checkout.PlacementRequest{
		CustomerName: "Сарнай",
		Address:      "УБ, СБД, 8-р хороо",
		Phone:        "88004455",
		Items: []checkout.PlacementItem{
			{ProductID: "stroller", Qty: 1, Price: 450000},
			{ProductID: "vitamins", Qty: 2, Price: 60000},
		},
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusNew, order.Status)
	require.Equal(s.T(), int64(570000), order.TotalPrice)

	// Остатки списаны сразу при размещении.
	s.requireStock("stroller", 2)
	s.requireStock("vitamins", 8)

	// new -> pending -> delivered, остатки не трогаются повторно.
	_, err = s.transitions.Transition(order.ID, domain.OrderStatusPending, "оператор подтвердил")
	require.NoError(s.T(), err)
	delivered, err := s.transitions.Transition(order.ID, domain.OrderStatusDelivered, "")
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusDelivered, delivered.Status)
	s.requireStock("stroller", 2)
	s.requireStock("vitamins", 8)

	// Outbox worker доставляет накопленные события в publisher.
	s.worker.ProcessOnce(context.Background())
	published := s.publisher.published()
	require.Len(s.T(), published, 3)
	require.Equal(s.T(), "order.created", published[0].EventType)
	require.Equal(s.T(), "order.status_changed", published[1].EventType)
	require.Equal(s.T(), "order.status_changed", published[2].EventType)

	stats, err := s.outboxRepo.Stats()
	require.NoError(s.T(), err)
	require.Zero(s.T(), stats.PendingCount)
}

func (s *OrderLifecycleTestSuite) TestCancellationRestoresStockExactlyOnce() {
	order := s.placeStrollerOrder(2)
	s.requireStock("stroller", 1)

	cancelled, err := s.transitions.Transition(order.ID, domain.OrderStatusCancelled, "клиент передумал")
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCancelled, cancelled.Status)
	s.requireStock("stroller", 3)

	// Повторная отмена — no-op: версия и остаток не меняются.
	again, err := s.transitions.Transition(order.ID, domain.OrderStatusCancelled, "повтор")
	require.NoError(s.T(), err)
	require.Equal(s.T(), cancelled.Version, again.Version)
	s.requireStock("stroller", 3)

	// В таймлайне ровно одна отмена с причиной.
	events, err := s.timeline.List(order.ID)
	require.NoError(s.T(), err)
	var cancels int
	for _, event := range events {
		if event.Type == "order.cancelled" {
			cancels++
			require.Equal(s.T(), "клиент передумал", event.Reason)
		}
	}
	require.Equal(s.T(), 1, cancels)
}

func (s *OrderLifecycleTestSuite) TestUncancelFailsWhenStockIsGone() {
	order := s.placeStrollerOrder(2)
	_, err := s.transitions.Transition(order.ID, domain.OrderStatusCancelled, "")
	require.NoError(s.T(), err)
	s.requireStock("stroller", 3)

	// Конкурент выкупает почти весь остаток.
	competitor := s.placeStrollerOrder(2)
	require.NotEmpty(s.T(), competitor.ID)
	s.requireStock("stroller", 1)

	// Возврат из cancelled требует повторного резерва двух штук — их нет.
	_, err = s.transitions.Transition(order.ID, domain.OrderStatusPending, "")
	require.ErrorIs(s.T(), err, domain.ErrInsufficientStock)

	current, err := s.orders.Get(order.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), domain.OrderStatusCancelled, current.Status)
	s.requireStock("stroller", 1)
}

func (s *OrderLifecycleTestSuite) TestPromoConsumedByPlacementOnly() {
	order, err := s.checkout.PlaceOrder(checkout.PlacementRequest{
		CustomerName: "Оюунаа",
		Address:      "УБ, БГД",
		Phone:        "99887766",
		PromoCode:    "eej20",
		Items: []checkout.PlacementItem{
			{ProductID: "vitamins", Qty: 1, Price: 60000},
		},
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), "EEJ20", order.PromoCode)
	require.Equal(s.T(), int64(12000), order.DiscountAmount)
	require.Equal(s.T(), int64(48000), order.TotalPrice)

	promo, err := s.promos.Find("EEJ20")
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), promo.UsedCount)

	// Лимит исчерпан: второй заказ проходит, но уже без скидки.
	second, err := s.checkout.PlaceOrder(checkout.PlacementRequest{
		CustomerName: "Оюунаа",
		Address:      "УБ, БГД",
		Phone:        "99887766",
		PromoCode:    "EEJ20",
		Items: []checkout.PlacementItem{
			{ProductID: "vitamins", Qty: 1, Price: 60000},
		},
	})
	require.NoError(s.T(), err)
	require.Zero(s.T(), second.DiscountAmount)
	require.Empty(s.T(), second.PromoCode)
	require.Equal(s.T(), int64(60000), second.TotalPrice)

	promo, err = s.promos.Find("EEJ20")
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), promo.UsedCount)
	s.requireStock("vitamins", 8)
}

func (s *OrderLifecycleTestSuite) placeStrollerOrder(qty int64) domain.Order {
	order, err := s.checkout.PlaceOrder(checkout.PlacementRequest{
		CustomerName: "Батцэцэг",
		Address:      "УБ, ЧД, 5-р хороо",
		Phone:        "95123456",
		Items: []checkout.PlacementItem{
			{ProductID: "stroller", Qty: qty, Price: 450000},
		},
	})
	require.NoError(s.T(), err)
	return order
}

func (s *OrderLifecycleTestSuite) requireStock(productID string, want int64) {
	product, err := s.catalog.Get(productID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), want, product.Stock)
}

func TestOrderLifecycle(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
