package notify

import (
	"testing"
	"time"
)

func TestHub_DeliversToAllUserConnections(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe("u1")
	b, cancelB := hub.Subscribe("u1")
	defer cancelA()
	defer cancelB()

	hub.Publish("u1", Event{MeetingID: "m1", Status: "completed"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.MeetingID != "m1" || ev.Status != "completed" {
				t.Fatalf("event = %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber starved")
		}
	}
}

func TestHub_IsolatesUsers(t *testing.T) {
	hub := NewHub()
	other, cancel := hub.Subscribe("u2")
	defer cancel()

	hub.Publish("u1", Event{MeetingID: "m1", Status: "failed"})

	select {
	case ev := <-other:
		t.Fatalf("u2 received u1's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("u1")
	cancel()

	// Publish after cancel must neither panic nor deliver.
	hub.Publish("u1", Event{MeetingID: "m1", Status: "completed"})

	if ev, open := <-ch; open {
		t.Fatalf("received after unsubscribe: %+v", ev)
	}
}

func TestHub_SlowConsumerDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("u1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish("u1", Event{MeetingID: "m1", Status: "completed"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}
