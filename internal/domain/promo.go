package domain

import (
	"strings"
	"time"
)

// PromoType — тип скидки промокода.
type PromoType string

const (
	// PromoTypePercent — скидка в процентах от суммы корзины.
	PromoTypePercent PromoType = "percent"
	// PromoTypeFlat — фиксированная скидка в единицах валюты.
	PromoTypeFlat PromoType = "flat"
)

// Valid сообщает, известен ли тип скидки.
func (t PromoType) Valid() bool {
	return t == PromoTypePercent || t == PromoTypeFlat
}

// PromoCode описывает промокод с лимитом использований и сроком действия.
// UsedCount только растёт; инкремент выполняется атомарно на уровне хранилища.
type PromoCode struct {
	// Code хранится нормализованным: верхний регистр, без крайних пробелов.
	Code   string
	Type   PromoType
	Amount int64
	Active bool
	// UsageLimit == 0 означает «без лимита».
	UsageLimit int64
	UsedCount  int64
	// ExpiresAt == nil означает «без срока действия».
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// NormalizeCode приводит код к каноническому виду для регистронезависимого поиска.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedeemableAt — предикат применимости кода в момент now.
func (p PromoCode) RedeemableAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return false
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Discount считает сумму скидки для subtotal. Процентная скидка округляется
// до целой единицы валюты по правилу round-half-up; результат всегда зажат
// в диапазон [0, subtotal], поэтому итог заказа не бывает отрицательным.
func (p PromoCode) Discount(subtotal int64) int64 {
	if subtotal <= 0 || p.Amount <= 0 {
		return 0
	}

	var discount int64
	switch p.Type {
	case PromoTypePercent:
		discount = (subtotal*p.Amount + 50) / 100
	case PromoTypeFlat:
		discount = p.Amount
	default:
		return 0
	}

	if discount > subtotal {
		discount = subtotal
	}
	return discount
}
