package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в витрине.
type OrderStatus string

const (
	// OrderStatusNew — заказ только что размещён покупателем.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusPending — заказ принят в обработку.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusDelivered — заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён; зарезервированный остаток возвращён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, известен ли статус системе.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusPending, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// StockEffect — складской побочный эффект перехода статуса.
type StockEffect int

const (
	// StockEffectNone — переход меняет только поле статуса.
	StockEffectNone StockEffect = iota
	// StockEffectRestore — вернуть остаток по всем позициям заказа.
	StockEffectRestore
	// StockEffectReserve — заново списать остаток по всем позициям с предварительной проверкой.
	StockEffectReserve
)

// TransitionStockEffect — таблица переходов статусов как чистая функция.
// Guard по предыдущему статусу делает повторную отмену идемпотентной:
// cancelled -> cancelled не возвращает остаток второй раз.
func TransitionStockEffect(prev, next OrderStatus) StockEffect {
	if prev == next {
		return StockEffectNone
	}
	if next == OrderStatusCancelled {
		return StockEffectRestore
	}
	if prev == OrderStatusCancelled {
		return StockEffectReserve
	}
	return StockEffectNone
}

// OrderItem — снимок товара на момент заказа, а не живая ссылка.
// Последующие правки каталога (цена, название) не меняют историю заказов.
type OrderItem struct {
	// ProductID связывает позицию с товаром только для корректировки остатка.
	ProductID   string
	Name        string
	Description string
	// Price — цена за единицу на момент заказа.
	Price int64
	Qty   int64
}

// Order агрегирует данные покупателя, позиции и рассчитанные суммы.
// После создания мутирует только Status (и административное удаление).
type Order struct {
	ID           string
	CustomerName string
	Address      string
	Phone        string
	Notes        string
	// MediaURL — опциональная ссылка на вложение покупателя.
	MediaURL string
	Items    []OrderItem
	// Subtotal — сумма price*qty по позициям.
	Subtotal int64
	// DiscountAmount — применённая скидка, 0 <= DiscountAmount <= Subtotal.
	DiscountAmount int64
	// PromoCode — фактически применённый код, либо пустая строка.
	PromoCode string
	// TotalPrice = Subtotal - DiscountAmount, никогда не отрицательная.
	TotalPrice int64
	Status     OrderStatus
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет обязательные поля и согласованность сумм заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.Address == "" {
		errs = append(errs, ErrAddressRequired)
	}
	if o.Phone == "" {
		errs = append(errs, ErrPhoneRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	var subtotal int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.Price < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		subtotal += item.Qty * item.Price
	}
	if subtotal != o.Subtotal {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.DiscountAmount < 0 || o.DiscountAmount > o.Subtotal {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.TotalPrice != o.Subtotal-o.DiscountAmount {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
