package server

import (
	"encoding/json"
	"testing"
)

func TestBrokerPublishReachesSubscribers(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("batch-1")
	defer b.Unsubscribe("batch-1", ch)

	b.Publish("batch-1", BatchEvent{Type: "run", RunIndex: 3, RunsCompleted: 4, RunsTotal: 10})
	b.Publish("batch-2", BatchEvent{Type: "run", RunIndex: 0, RunsCompleted: 1, RunsTotal: 1})

	select {
	case data := <-ch:
		var ev BatchEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decoding event: %v", err)
		}
		if ev.RunIndex != 3 || ev.RunsCompleted != 4 {
			t.Errorf("event = %+v, want run 3 of batch-1", ev)
		}
	default:
		t.Fatal("expected a buffered event")
	}

	select {
	case data := <-ch:
		t.Fatalf("unexpected cross-batch event: %s", data)
	default:
	}
}

func TestBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("batch-1")
	defer b.Unsubscribe("batch-1", ch)

	// Overfill the buffer; Publish must not block.
	for i := 0; i < 40; i++ {
		b.Publish("batch-1", BatchEvent{Type: "run", RunIndex: i})
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered %d events, want a full channel of %d", got, cap(ch))
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("batch-1")
	b.Unsubscribe("batch-1", ch)

	b.Publish("batch-1", BatchEvent{Type: "done"})
	if len(ch) != 0 {
		t.Error("unsubscribed channel still received an event")
	}
}
