package status

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/metrics"
)

const (
	maxRetries = 3
	baseDelay  = 10 * time.Millisecond
)

// Handler применяет переходы статусов заказа вместе с их складскими
// побочными эффектами. Складской эффект перехода определяется чистой
// таблицей domain.TransitionStockEffect.
type Handler struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
}

// NewHandler создаёт обработчик переходов статусов.
func NewHandler(
	orders domain.OrderRepository,
	catalog domain.CatalogRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "status")
	}
	return &Handler{
		orders:   orders,
		catalog:  catalog,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewHandlerWithoutMetrics создаёт обработчик без метрик (для тестов).
func NewHandlerWithoutMetrics(
	orders domain.OrderRepository,
	catalog domain.CatalogRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Handler {
	h := NewHandler(orders, catalog, outbox, timeline, logger)
	h.metrics = nil
	return h
}

// Transition переводит заказ в статус next и применяет складской эффект.
//
// Повторная отмена — no-op: guard по предыдущему статусу в таблице переходов
// не даёт вернуть остаток дважды. Обратный переход из cancelled заново
// резервирует остаток и отклоняется, если товара уже не хватает.
func (h *Handler) Transition(orderID string, next domain.OrderStatus, reason string) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, domain.ErrStatusInvalid
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		order, err := h.orders.Get(orderID)
		if err != nil {
			return domain.Order{}, err
		}

		// Эффект вычисляется от фактического текущего статуса: после
		// проигранной гонки заказ перечитывается и решение принимается заново.
		if order.Status == next {
			return order, nil
		}
		effect := domain.TransitionStockEffect(order.Status, next)
		prev := order.Status

		updated, err := h.applyTransition(order, next, effect)
		if err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				h.logger.WithFields(log.Fields{
					"order_id": orderID,
					"attempt":  attempt + 1,
				}).Warn("version conflict during status transition, retrying")
				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return domain.Order{}, err
		}

		if h.metrics != nil {
			h.metrics.RecordStatusTransition(effectLabel(effect))
		}
		h.emitTransitionEvents(updated, prev, reason)

		return updated, nil
	}

	return domain.Order{}, domain.ErrOrderVersionConflict
}

func (h *Handler) applyTransition(order domain.Order, next domain.OrderStatus, effect domain.StockEffect) (domain.Order, error) {
	switch effect {
	case domain.StockEffectRestore:
		return h.applyRestore(order, next)
	case domain.StockEffectReserve:
		return h.applyReserve(order, next)
	default:
		return h.saveStatus(order, next)
	}
}

// applyRestore сначала записывает статус, потом возвращает остаток.
// Optimistic lock на записи статуса — и есть защита от двойного возврата:
// остаток возвращает только инстанс, выигравший запись.
func (h *Handler) applyRestore(order domain.Order, next domain.OrderStatus) (domain.Order, error) {
	updated, err := h.saveStatus(order, next)
	if err != nil {
		return domain.Order{}, err
	}

	for productID, qty := range aggregateItems(updated.Items) {
		if _, err := h.catalog.AdjustStock(productID, qty); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_id":   updated.ID,
				"product_id": productID,
				"qty":        qty,
			}).Error("stock restore failed, manual reconciliation required")
			if h.metrics != nil {
				h.metrics.RecordStockAnomaly()
			}
		}
	}

	return updated, nil
}

// applyReserve заново списывает остаток по всем позициям и только потом
// записывает статус. Частично выполненное списание откатывается и при
// нехватке товара, и при проигранной записи статуса.
func (h *Handler) applyReserve(order domain.Order, next domain.OrderStatus) (domain.Order, error) {
	deducted := make(map[string]int64)

	for productID, qty := range aggregateItems(order.Items) {
		if _, err := h.catalog.AdjustStock(productID, -qty); err != nil {
			h.releaseDeducted(order.ID, deducted)
			return domain.Order{}, fmt.Errorf("re-reserve stock for order %s: %w", order.ID, err)
		}
		deducted[productID] = qty
	}

	updated, err := h.saveStatus(order, next)
	if err != nil {
		h.releaseDeducted(order.ID, deducted)
		return domain.Order{}, err
	}

	return updated, nil
}

func (h *Handler) saveStatus(order domain.Order, next domain.OrderStatus) (domain.Order, error) {
	order.Status = next
	order.UpdatedAt = h.now()
	if err := h.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++
	return order, nil
}

func (h *Handler) releaseDeducted(orderID string, deducted map[string]int64) {
	for productID, qty := range deducted {
		if _, err := h.catalog.AdjustStock(productID, qty); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_id":   orderID,
				"product_id": productID,
				"qty":        qty,
			}).Error("rollback of stock deduction failed, manual reconciliation required")
			if h.metrics != nil {
				h.metrics.RecordStockAnomaly()
			}
		}
	}
}

func (h *Handler) emitTransitionEvents(order domain.Order, prev domain.OrderStatus, reason string) {
	eventType := "order.status_changed"
	if order.Status == domain.OrderStatusCancelled {
		eventType = "order.cancelled"
	}

	payload := map[string]interface{}{
		"order_id": order.ID,
		"from":     string(prev),
		"to":       string(order.Status),
		"ts":       order.UpdatedAt.Format(time.RFC3339Nano),
	}
	if reason != "" {
		payload["reason"] = reason
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", order.ID).Error("marshal transition event failed")
		return
	}

	if h.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := h.outbox.Enqueue(msg); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue transition event failed")
		} else if h.metrics != nil {
			h.metrics.RecordOutboxEvent()
		}
	}

	if h.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Reason:   reason,
			Occurred: order.UpdatedAt,
		}
		if err := h.timeline.Append(event); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if h.metrics != nil {
			h.metrics.RecordTimelineEvent()
		}
	}
}

func aggregateItems(items []domain.OrderItem) map[string]int64 {
	totals := make(map[string]int64, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Qty
	}
	return totals
}

func effectLabel(effect domain.StockEffect) string {
	switch effect {
	case domain.StockEffectRestore:
		return "restore"
	case domain.StockEffectReserve:
		return "reserve"
	default:
		return "none"
	}
}
