package eventpool

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPoolMetricsNilIsSafe(t *testing.T) {
	var m *PoolMetrics
	m.observeDispatch(outcomeHandled)
	m.observePollerDeath()
	m.observeArmingFailure()
	m.observeCapacityExhausted()
	m.setSlotsInUse(3)
	m.setSlotsCapacity(1024)
	m.setWorkersActive(2)
}

func TestPoolMetricsRegistersAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPoolMetrics(reg, "eventpool_test")
	if m == nil {
		t.Fatal("expected non-nil metrics with a registerer")
	}

	m.observeDispatch(outcomeHandled)
	m.observeDispatch(outcomeHandled)
	m.observeDispatch(outcomeStale)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, fam := range families {
		if fam.GetName() != "eventpool_test_dispatch_total" {
			continue
		}
		found = true
		for _, metric := range fam.Metric {
			if labelValue(metric, "outcome") == outcomeHandled && metric.Counter.GetValue() != 2 {
				t.Fatalf("expected handled counter 2, got %v", metric.Counter.GetValue())
			}
		}
	}
	if !found {
		t.Fatal("dispatch_total metric family not registered")
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.Label {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestNewPoolMetricsNilRegistererDisablesMetrics(t *testing.T) {
	if m := newPoolMetrics(nil, "ignored"); m != nil {
		t.Fatal("expected nil metrics when no registerer is supplied")
	}
}

// TestRegisterUnregisterUpdatesSlotGauges checks that the slots_in_use gauge
// actually reflects live registrations end to end, not just direct
// PoolMetrics calls.
func TestRegisterUnregisterUpdatesSlotGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(WithMaxThreads(2), WithMetrics(reg, "eventpool_gauge_test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		p.Destroy()
		_ = p.ReconfigureThreads(0)
	})

	r, w, err := pipePair(t)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	gaugeValue := func(name string) float64 {
		families, err := reg.Gather()
		if err != nil {
			t.Fatalf("Gather: %v", err)
		}
		for _, fam := range families {
			if fam.GetName() != name {
				continue
			}
			for _, metric := range fam.Metric {
				return metric.GetGauge().GetValue()
			}
		}
		return 0
	}

	if got := gaugeValue("eventpool_gauge_test_slots_in_use"); got != 0 {
		t.Fatalf("expected 0 slots in use before any registration, got %v", got)
	}

	h, err := p.Register(int(r.Fd()), func(int, int32, uint32, any, bool, bool, bool, bool) {}, nil, Enable, Unchanged, false)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := gaugeValue("eventpool_gauge_test_slots_in_use"); got != 1 {
		t.Fatalf("expected 1 slot in use after Register, got %v", got)
	}
	if got := gaugeValue("eventpool_gauge_test_slots_capacity"); got < 1 {
		t.Fatalf("expected nonzero slot capacity after first allocation, got %v", got)
	}

	if err := p.UnregisterClose(h, int(r.Fd())); err != nil {
		t.Fatalf("UnregisterClose: %v", err)
	}
	if got := gaugeValue("eventpool_gauge_test_slots_in_use"); got != 0 {
		t.Fatalf("expected 0 slots in use after UnregisterClose, got %v", got)
	}
}
