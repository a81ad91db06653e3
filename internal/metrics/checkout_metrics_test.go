package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCheckoutMetricsWithRegisterer(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := newCheckoutMetricsWithRegisterer(reg)

	if metrics == nil {
		t.Fatal("newCheckoutMetricsWithRegisterer should not return nil")
	}
	if metrics.ordersPlaced == nil {
		t.Error("ordersPlaced counter should not be nil")
	}
	if metrics.ordersRejected == nil {
		t.Error("ordersRejected counter vec should not be nil")
	}
	if metrics.checkoutDuration == nil {
		t.Error("checkoutDuration histogram should not be nil")
	}
	if metrics.statusTransitions == nil {
		t.Error("statusTransitions counter vec should not be nil")
	}
	if metrics.promoRedemptions == nil {
		t.Error("promoRedemptions counter should not be nil")
	}
	if metrics.stockAnomalies == nil {
		t.Error("stockAnomalies counter should not be nil")
	}
	if metrics.timelineEvents == nil {
		t.Error("timelineEvents counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

func TestCheckoutMetricsReuseExistingCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first := newCheckoutMetricsWithRegisterer(reg)

	// Повторная регистрация в том же registry не должна паниковать,
	// а должна вернуть уже существующие коллекторы.
	second := newCheckoutMetricsWithRegisterer(reg)

	first.RecordOrderPlaced()
	second.RecordOrderPlaced()

	if got := testutil.ToFloat64(first.ordersPlaced); got != 2.0 {
		t.Fatalf("expected shared counter value 2.0, got %f", got)
	}
}

func TestCheckoutMetricsRecorders(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := newCheckoutMetricsWithRegisterer(reg)

	metrics.RecordOrderPlaced()
	metrics.RecordOrderRejected("insufficient_stock")
	metrics.RecordOrderRejected("insufficient_stock")
	metrics.RecordOrderRejected("promo_invalid")
	metrics.RecordStatusTransition("restore")
	metrics.RecordPromoRedemption()
	metrics.RecordStockAnomaly()
	metrics.RecordTimelineEvent()
	metrics.RecordOutboxEvent()
	metrics.RecordCheckoutDuration(150 * time.Millisecond)

	if got := testutil.ToFloat64(metrics.ordersPlaced); got != 1.0 {
		t.Errorf("ordersPlaced: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.ordersRejected.WithLabelValues("insufficient_stock")); got != 2.0 {
		t.Errorf("ordersRejected[insufficient_stock]: expected 2.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.ordersRejected.WithLabelValues("promo_invalid")); got != 1.0 {
		t.Errorf("ordersRejected[promo_invalid]: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.statusTransitions.WithLabelValues("restore")); got != 1.0 {
		t.Errorf("statusTransitions[restore]: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.promoRedemptions); got != 1.0 {
		t.Errorf("promoRedemptions: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.stockAnomalies); got != 1.0 {
		t.Errorf("stockAnomalies: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.timelineEvents); got != 1.0 {
		t.Errorf("timelineEvents: expected 1.0, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.outboxEvents); got != 1.0 {
		t.Errorf("outboxEvents: expected 1.0, got %f", got)
	}
}
