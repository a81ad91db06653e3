package domain

import (
	"testing"
	"time"
)

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  welcome10 "); got != "WELCOME10" {
		t.Fatalf("expected WELCOME10, got %q", got)
	}
}

func TestPromoCode_Discount_Percent(t *testing.T) {
	promo := PromoCode{Code: "WELCOME10", Type: PromoTypePercent, Amount: 10, Active: true}

	if got := promo.Discount(3000); got != 300 {
		t.Fatalf("expected 300, got %d", got)
	}
}

func TestPromoCode_Discount_PercentRoundHalfUp(t *testing.T) {
	promo := PromoCode{Code: "P15", Type: PromoTypePercent, Amount: 15, Active: true}

	// 15% от 1010 = 151.5, округляем вверх до 152.
	if got := promo.Discount(1010); got != 152 {
		t.Fatalf("expected 152, got %d", got)
	}
	// 15% от 1030 = 154.5 -> 155; 15% от 1001 = 150.15 -> 150.
	if got := promo.Discount(1001); got != 150 {
		t.Fatalf("expected 150, got %d", got)
	}
}

func TestPromoCode_Discount_FlatClamped(t *testing.T) {
	promo := PromoCode{Code: "MINUS5000", Type: PromoTypeFlat, Amount: 5000, Active: true}

	if got := promo.Discount(3000); got != 3000 {
		t.Fatalf("expected clamp to subtotal, got %d", got)
	}
	if got := promo.Discount(8000); got != 5000 {
		t.Fatalf("expected 5000, got %d", got)
	}
}

func TestPromoCode_Discount_NeverNegative(t *testing.T) {
	promo := PromoCode{Code: "FULL", Type: PromoTypePercent, Amount: 100, Active: true}

	for _, subtotal := range []int64{0, 1, 999, 100000} {
		discount := promo.Discount(subtotal)
		if discount < 0 || discount > subtotal {
			t.Fatalf("discount %d out of range for subtotal %d", discount, subtotal)
		}
	}
}

func TestPromoCode_RedeemableAt(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		promo PromoCode
		want  bool
	}{
		{"active unlimited", PromoCode{Active: true}, true},
		{"inactive", PromoCode{Active: false}, false},
		{"under limit", PromoCode{Active: true, UsageLimit: 5, UsedCount: 4}, true},
		{"limit reached", PromoCode{Active: true, UsageLimit: 5, UsedCount: 5}, false},
		{"not expired", PromoCode{Active: true, ExpiresAt: &future}, true},
		{"expired", PromoCode{Active: true, ExpiresAt: &past}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.promo.RedeemableAt(now); got != tc.want {
				t.Fatalf("RedeemableAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInventoryLog_Profit(t *testing.T) {
	entry := InventoryLog{
		UnitCost:       10000,
		SalePrice:      15000,
		Quantity:       10,
		CargoCost:      8000,
		InspectionCost: 2000,
		OtherCost:      1000,
	}

	// (15000-10000)*10 - 8000 - 2000 - 1000 = 39000
	if got := entry.Profit(); got != 39000 {
		t.Fatalf("expected 39000, got %d", got)
	}
}
