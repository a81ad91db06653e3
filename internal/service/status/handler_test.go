package status

import (
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/storage/memory"
)

type conflictingOrders struct {
	domain.OrderRepository
	mu        sync.Mutex
	conflicts int
	saveCnt   int
}

func (s *conflictingOrders) Save(order domain.Order) error {
	s.mu.Lock()
	s.saveCnt++
	conflict := s.conflicts > 0
	if conflict {
		s.conflicts--
	}
	s.mu.Unlock()

	if conflict {
		return domain.ErrOrderVersionConflict
	}
	return s.OrderRepository.Save(order)
}

func newFixture(t *testing.T) (domain.CatalogRepository, domain.OrderRepository, *Handler) {
	t.Helper()

	catalog := memory.NewCatalogRepository()
	orders := memory.NewOrderRepository()
	handler := NewHandlerWithoutMetrics(orders, catalog, memory.NewOutboxRepository(), memory.NewTimelineRepository(), log.New().WithField("test", "status"))

	now := time.Now().UTC()
	if err := catalog.Create(domain.Product{ID: "crib", Name: "Хүүхдийн ор", Price: 250000, Category: domain.CategoryBaby, Stock: 3, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	return catalog, orders, handler
}

func seedOrder(t *testing.T, orders domain.OrderRepository, status domain.OrderStatus) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:           "order-1",
		CustomerName: "Болормаа",
		Address:      "УБ, ХУД, 3-р хороо",
		Phone:        "99112233",
		Items: []domain.OrderItem{
			{ProductID: "crib", Name: "Хүүхдийн ор", Price: 250000, Qty: 2},
		},
		Subtotal:   500000,
		TotalPrice: 500000,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := orders.Create(order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func stockOf(t *testing.T, catalog domain.CatalogRepository, id string) int64 {
	t.Helper()
	product, err := catalog.Get(id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return product.Stock
}

func TestTransition_PlainStatusChangeLeavesStockAlone(t *testing.T) {
	catalog, orders, handler := newFixture(t)
	seedOrder(t, orders, domain.OrderStatusNew)

	updated, err := handler.Transition("order-1", domain.OrderStatusPending, "")
	if err != nil {
		t.Fatalf("transition new -> pending: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.Version != 1 {
		t.Fatalf("expected version 1 after save, got %d", updated.Version)
	}
	if got := stockOf(t, catalog, "crib"); got != 3 {
		t.Fatalf("plain transition must not touch stock, got %d", got)
	}
}

func TestTransition_CancelRestoresStockOnce(t *testing.T) {
	catalog, orders, handler := newFixture(t)
	seedOrder(t, orders, domain.OrderStatusPending)

	updated, err := handler.Transition("order-1", domain.OrderStatusCancelled, "customer request")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if got := stockOf(t, catalog, "crib"); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}

	// Повторная отмена — идемпотентный no-op: остаток не возвращается второй раз.
	again, err := handler.Transition("order-1", domain.OrderStatusCancelled, "retry click")
	if err != nil {
		t.Fatalf("repeated cancel: %v", err)
	}
	if again.Version != updated.Version {
		t.Fatalf("repeated cancel must not bump version: %d vs %d", again.Version, updated.Version)
	}
	if got := stockOf(t, catalog, "crib"); got != 5 {
		t.Fatalf("repeated cancel must not restore again, got %d", got)
	}
}

func TestTransition_UncancelReservesAgain(t *testing.T) {
	catalog, orders, handler := newFixture(t)
	seedOrder(t, orders, domain.OrderStatusPending)

	if _, err := handler.Transition("order-1", domain.OrderStatusCancelled, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := stockOf(t, catalog, "crib"); got != 5 {
		t.Fatalf("expected 5 after cancel, got %d", got)
	}

	updated, err := handler.Transition("order-1", domain.OrderStatusPending, "restored by admin")
	if err != nil {
		t.Fatalf("uncancel: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if got := stockOf(t, catalog, "crib"); got != 3 {
		t.Fatalf("expected stock re-reserved to 3, got %d", got)
	}
}

func TestTransition_UncancelRejectedWhenStockGone(t *testing.T) {
	catalog, orders, handler := newFixture(t)
	seedOrder(t, orders, domain.OrderStatusPending)

	if _, err := handler.Transition("order-1", domain.OrderStatusCancelled, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Остаток разобрали, пока заказ был отменён.
	if _, err := catalog.AdjustStock("crib", -4); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err := handler.Transition("order-1", domain.OrderStatusPending, "")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Заказ остался отменённым, остаток не тронут.
	order, getErr := orders.Get("order-1")
	if getErr != nil {
		t.Fatalf("get order: %v", getErr)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("order must stay cancelled, got %s", order.Status)
	}
	if got := stockOf(t, catalog, "crib"); got != 1 {
		t.Fatalf("expected stock unchanged at 1, got %d", got)
	}
}

func TestTransition_ReserveRollsBackOnSaveConflictThenRetries(t *testing.T) {
	catalog := memory.NewCatalogRepository()
	now := time.Now().UTC()
	if err := catalog.Create(domain.Product{ID: "crib", Name: "Хүүхдийн ор", Price: 250000, Stock: 3, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	orders := &conflictingOrders{OrderRepository: memory.NewOrderRepository(), conflicts: 1}
	handler := NewHandlerWithoutMetrics(orders, catalog, memory.NewOutboxRepository(), memory.NewTimelineRepository(), log.New().WithField("test", "conflict"))
	seedOrder(t, orders.OrderRepository, domain.OrderStatusCancelled)

	updated, err := handler.Transition("order-1", domain.OrderStatusPending, "")
	if err != nil {
		t.Fatalf("transition after conflict retry: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if orders.saveCnt != 2 {
		t.Fatalf("expected 2 save attempts, got %d", orders.saveCnt)
	}

	// Откат списания с первой попытки не должен задвоить резерв.
	product, err := catalog.Get("crib")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 1 {
		t.Fatalf("expected stock 1 after single reserve, got %d", product.Stock)
	}
}

func TestTransition_Guards(t *testing.T) {
	_, orders, handler := newFixture(t)
	seedOrder(t, orders, domain.OrderStatusNew)

	if _, err := handler.Transition("order-1", domain.OrderStatus("shipped"), ""); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected ErrStatusInvalid, got %v", err)
	}
	if _, err := handler.Transition("missing-order", domain.OrderStatusPending, ""); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestTransition_EmitsOutboxAndTimeline(t *testing.T) {
	catalog := memory.NewCatalogRepository()
	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	handler := NewHandlerWithoutMetrics(orders, catalog, outbox, timeline, log.New().WithField("test", "events"))

	now := time.Now().UTC()
	if err := catalog.Create(domain.Product{ID: "crib", Name: "Хүүхдийн ор", Price: 250000, Stock: 3, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	seedOrder(t, orders, domain.OrderStatusPending)

	if _, err := handler.Transition("order-1", domain.OrderStatusCancelled, "out of budget"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending := outbox.AllPending()
	if len(pending) != 1 || pending[0].EventType != "order.cancelled" {
		t.Fatalf("expected order.cancelled outbox event, got %+v", pending)
	}

	events, err := timeline.List("order-1")
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 1 || events[0].Type != "order.cancelled" || events[0].Reason != "out of budget" {
		t.Fatalf("unexpected timeline events: %+v", events)
	}
}
