package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDroppedIncrementsBothCounters(t *testing.T) {
	beforeEvents := testutil.ToFloat64(GatewayEvents.WithLabelValues("send", "dropped"))
	beforeReason := testutil.ToFloat64(GatewayDropped.WithLabelValues("send", "auth"))

	Dropped("send", "auth")

	if got := testutil.ToFloat64(GatewayEvents.WithLabelValues("send", "dropped")); got != beforeEvents+1 {
		t.Fatalf("events counter = %v, want %v", got, beforeEvents+1)
	}
	if got := testutil.ToFloat64(GatewayDropped.WithLabelValues("send", "auth")); got != beforeReason+1 {
		t.Fatalf("dropped counter = %v, want %v", got, beforeReason+1)
	}
}

func TestObserveStoreCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(StoreErrors.WithLabelValues("append"))

	ObserveStore("append", time.Now(), nil)
	ObserveStore("append", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(StoreErrors.WithLabelValues("append")); got != before+1 {
		t.Fatalf("store errors = %v, want %v", got, before+1)
	}
}
