package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"assistbot/pkg/bus"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveInbound("whatsapp", "text")
	m.ObserveDispatch("button", "completed", 0.1)
	m.ObserveOutbound("text", "sent")
	m.ObserveProvider("weather", true)
	m.Record(bus.Event{Type: bus.EventDispatchCompleted})
}

func TestRecordDispatchEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Record(bus.Event{
		Type:    bus.EventDispatchReceived,
		Channel: "whatsapp",
		Payload: map[string]string{bus.PayloadKind: "text"},
	})
	m.Record(bus.Event{
		Type:    bus.EventDispatchCompleted,
		Payload: map[string]string{bus.PayloadRoute: "intent", bus.PayloadDuration: "120"},
	})
	m.Record(bus.Event{
		Type:    bus.EventDispatchFailed,
		Payload: map[string]string{bus.PayloadRoute: "button"},
	})

	if got := testutil.ToFloat64(m.inboundTotal.WithLabelValues("whatsapp", "text")); got != 1 {
		t.Fatalf("inbound_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("intent", "completed")); got != 1 {
		t.Fatalf("dispatch_total completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatchTotal.WithLabelValues("button", "failed")); got != 1 {
		t.Fatalf("dispatch_total failed = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.dispatchDuration); got != 1 {
		t.Fatalf("dispatch_duration series = %d, want 1", got)
	}
}

func TestObserveOutboundAndProvider(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOutbound("buttons", "sent")
	m.ObserveOutbound("buttons", "sent")
	m.ObserveOutbound("list", "failed")
	m.ObserveProvider("weather", false)

	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("buttons", "sent")); got != 2 {
		t.Fatalf("outbound buttons sent = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.outboundTotal.WithLabelValues("list", "failed")); got != 1 {
		t.Fatalf("outbound list failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.providerTotal.WithLabelValues("weather", "failed")); got != 1 {
		t.Fatalf("provider weather failed = %v, want 1", got)
	}
}

func TestConsumeStopsWhenChannelCloses(t *testing.T) {
	m := New(prometheus.NewRegistry())
	mb := bus.NewMessageBus()
	events, unsubscribe := mb.SubscribeEvents(context.Background(), 4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Consume(context.Background(), events)
	}()

	mb.PublishEvent(context.Background(), bus.Event{
		Type:    bus.EventDispatchCompleted,
		Payload: map[string]string{bus.PayloadRoute: "list"},
	})
	deadline := time.Now().Add(time.Second)
	for testutil.ToFloat64(m.dispatchTotal.WithLabelValues("list", "completed")) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("event was not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	unsubscribe()
	mb.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after channel close")
	}
}
