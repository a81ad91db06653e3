package checkout

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/oyushop/storefront/internal/domain"
	"github.com/oyushop/storefront/internal/metrics"
)

// PlacementItem — позиция корзины в запросе на размещение.
// Price — цена за единицу, которую видел покупатель в витрине.
type PlacementItem struct {
	ProductID string
	Qty       int64
	Price     int64
}

// PlacementRequest — входные данные конвейера размещения заказа.
type PlacementRequest struct {
	CustomerName string
	Address      string
	Phone        string
	Notes        string
	MediaURL     string
	PromoCode    string
	Items        []PlacementItem
}

// Service реализует конвейер размещения заказа: валидация, предварительная
// проверка корзины, применение промокода, запись заказа и списание остатков.
type Service struct {
	catalog  domain.CatalogRepository
	orders   domain.OrderRepository
	promos   domain.PromoRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
}

// NewService создаёт рабочий экземпляр конвейера размещения.
func NewService(
	catalog domain.CatalogRepository,
	orders domain.OrderRepository,
	promos domain.PromoRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &Service{
		catalog:  catalog,
		orders:   orders,
		promos:   promos,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewServiceWithoutMetrics создаёт конвейер без метрик (для тестов).
func NewServiceWithoutMetrics(
	catalog domain.CatalogRepository,
	orders domain.OrderRepository,
	promos domain.PromoRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	svc := NewService(catalog, orders, promos, outbox, timeline, logger)
	svc.metrics = nil
	return svc
}

// PlaceOrder проводит запрос через весь конвейер и возвращает записанный заказ.
//
// Правило «всё или ничего»: до записи заказа ни одна позиция не списывается,
// поэтому отклонённое размещение не оставляет следов ни в заказах, ни в остатках.
// После записи заказ уже не откатывается: сбой списания фиксируется как
// складская аномалия для ручной сверки.
func (s *Service) PlaceOrder(req PlacementRequest) (domain.Order, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	if err := validateRequest(req); err != nil {
		return s.reject("validation", err)
	}

	// Суммарная потребность по товару: дублирующиеся строки корзины
	// проверяются против остатка совокупно.
	required := make(map[string]int64, len(req.Items))
	for _, item := range req.Items {
		required[item.ProductID] += item.Qty
	}

	products := make(map[string]domain.Product, len(required))
	for _, item := range req.Items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		product, err := s.catalog.Get(item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return s.reject("product_not_found", &domain.ProductNotFoundError{ProductID: item.ProductID})
			}
			return s.reject("storage", err)
		}
		if product.Stock < required[item.ProductID] {
			return s.reject("insufficient_stock", &domain.InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Available: product.Stock,
				Requested: required[item.ProductID],
			})
		}
		products[item.ProductID] = product
	}

	// Позиции заказа — снимки: название и описание берутся из каталога
	// на момент размещения, цена — та, что видел покупатель.
	items := make([]domain.OrderItem, 0, len(req.Items))
	var subtotal int64
	for _, item := range req.Items {
		product := products[item.ProductID]
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			Name:        product.Name,
			Description: product.Description,
			Price:       item.Price,
			Qty:         item.Qty,
		})
		subtotal += item.Price * item.Qty
	}

	// Промокод — необязательное улучшение: неизвестный или непригодный код
	// даёт нулевую скидку и не срывает размещение. Жёсткая проверка кода
	// живёт в отдельной операции предварительной валидации.
	var (
		discount  int64
		promoCode string
	)
	if req.PromoCode != "" {
		promo, err := s.promos.Find(req.PromoCode)
		switch {
		case errors.Is(err, domain.ErrPromoNotFound):
			s.logger.WithField("promo_code", req.PromoCode).Debug("promo code not found, placing without discount")
		case err != nil:
			return s.reject("storage", err)
		case !promo.RedeemableAt(s.now()):
			s.logger.WithField("promo_code", promo.Code).Debug("promo code not redeemable, placing without discount")
		default:
			discount = promo.Discount(subtotal)
			promoCode = promo.Code
		}
	}

	now := s.now()
	order := domain.Order{
		ID:             uuid.NewString(),
		CustomerName:   req.CustomerName,
		Address:        req.Address,
		Phone:          req.Phone,
		Notes:          req.Notes,
		MediaURL:       req.MediaURL,
		Items:          items,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		PromoCode:      promoCode,
		TotalPrice:     subtotal - discount,
		Status:         domain.OrderStatusNew,
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orders.Create(order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("failed to persist order")
		return s.reject("storage", err)
	}

	// Заказ записан, дальнейшие сбои его не откатывают.
	s.redeemPromo(order)
	s.deductStock(order, required)

	s.emitEvent(order, "order.created", map[string]interface{}{
		"customer_name": order.CustomerName,
		"total_price":   order.TotalPrice,
		"items_count":   len(order.Items),
		"ts":            now.Format(time.RFC3339Nano),
	})

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
	}
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"total_price": order.TotalPrice,
		"items":       len(order.Items),
	}).Info("order placed")

	return order, nil
}

func (s *Service) reject(reason string, err error) (domain.Order, error) {
	if s.metrics != nil {
		s.metrics.RecordOrderRejected(reason)
	}
	return domain.Order{}, err
}

// redeemPromo условно инкрементирует счётчик использований кода.
// Сбой после записи заказа не откатывает заказ: скидка остаётся,
// расхождение фиксируется в логе для ручной сверки.
func (s *Service) redeemPromo(order domain.Order) {
	if order.PromoCode == "" {
		return
	}

	if err := s.promos.Redeem(order.PromoCode); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"promo_code": order.PromoCode,
		}).Error("promo redemption failed after order persistence, manual reconciliation required")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordPromoRedemption()
	}
}

// deductStock списывает остатки по всем позициям заказа. Условный отказ
// списания здесь означает гонку, проигранную после предварительной проверки:
// заказ уже записан, поэтому расхождение логируется как складская аномалия.
func (s *Service) deductStock(order domain.Order, required map[string]int64) {
	for productID, qty := range required {
		if _, err := s.catalog.AdjustStock(productID, -qty); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": productID,
				"qty":        qty,
			}).Error("stock deduction failed after order persistence, manual reconciliation required")
			if s.metrics != nil {
				s.metrics.RecordStockAnomaly()
			}
		}
	}
}

func (s *Service) emitEvent(order domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if s.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := s.outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}

	if s.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Occurred: s.now(),
		}
		if err := s.timeline.Append(event); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if s.metrics != nil {
			s.metrics.RecordTimelineEvent()
		}
	}
}

func validateRequest(req PlacementRequest) error {
	var errs []error

	if req.CustomerName == "" {
		errs = append(errs, domain.ErrCustomerNameRequired)
	}
	if req.Address == "" {
		errs = append(errs, domain.ErrAddressRequired)
	}
	if req.Phone == "" {
		errs = append(errs, domain.ErrPhoneRequired)
	}
	if len(req.Items) == 0 {
		errs = append(errs, domain.ErrItemsRequired)
	}
	for _, item := range req.Items {
		if item.Qty <= 0 {
			errs = append(errs, domain.ErrItemQtyInvalid)
			break
		}
	}
	for _, item := range req.Items {
		if item.Price < 0 {
			errs = append(errs, domain.ErrItemPriceInvalid)
			break
		}
	}

	return errors.Join(errs...)
}
