package collab

import (
	"fmt"
	"testing"
)

func TestSubscribeReadYourWrites(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe("p1")
	b := h.Subscribe("p1")

	subs := h.Subscribers("p1")
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}

	h.Unsubscribe(a)
	subs = h.Subscribers("p1")
	if len(subs) != 1 || subs[0] != b {
		t.Fatalf("expected only b to remain, got %d subscribers", len(subs))
	}
}

func TestLastUnsubscribeEvictsProjectEntry(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe("p1")
	b := h.Subscribe("p1")
	if h.ProjectCount() != 1 {
		t.Fatalf("expected 1 tracked project, got %d", h.ProjectCount())
	}
	h.Unsubscribe(a)
	if h.ProjectCount() != 1 {
		t.Fatalf("project entry should survive while b is subscribed")
	}
	h.Unsubscribe(b)
	if h.ProjectCount() != 0 {
		t.Fatalf("expected no tracked projects after last unsubscribe, got %d", h.ProjectCount())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe("p1")
	h.Unsubscribe(a)
	h.Unsubscribe(a)
	if h.ProjectCount() != 0 {
		t.Fatalf("expected empty hub, got %d projects", h.ProjectCount())
	}
	h.Unsubscribe(nil)
}

func TestPublishPrunesFailedSubscriber(t *testing.T) {
	// b gets a zero-capacity queue so the first delivery fails.
	h := NewHub(8)
	a := h.Subscribe("p1")
	c := h.Subscribe("p1")

	b := &Channel{projectID: "p1", ch: make(chan Event)}
	h.mu.Lock()
	h.subs["p1"][b] = struct{}{}
	h.mu.Unlock()

	ev := Event{ProjectID: "p1", Type: TypeCursor, Data: map[string]any{"x": 1.0}, UserID: "u1"}
	h.Publish(ev)

	for _, ch := range []*Channel{a, c} {
		select {
		case got := <-ch.Events():
			if got.Type != TypeCursor || got.UserID != "u1" {
				t.Fatalf("unexpected event: %#v", got)
			}
		default:
			t.Fatalf("live subscriber missed the event")
		}
	}
	if h.SubscriberCount("p1") != 2 {
		t.Fatalf("expected b pruned, got %d subscribers", h.SubscriberCount("p1"))
	}
	if _, open := <-b.ch; open {
		t.Fatalf("pruned channel queue should be closed")
	}
}

func TestPublishPreservesPerSourceOrder(t *testing.T) {
	h := NewHub(16)
	a := h.Subscribe("p1")

	for i := 0; i < 10; i++ {
		h.Publish(Event{
			ProjectID: "p1",
			Type:      TypeLayerUpdate,
			Data:      map[string]any{"seq": fmt.Sprintf("%d", i)},
			UserID:    "u1",
		})
	}
	for i := 0; i < 10; i++ {
		got := <-a.Events()
		if got.Data["seq"] != fmt.Sprintf("%d", i) {
			t.Fatalf("event %d out of order: %#v", i, got.Data)
		}
	}
}

func TestPublishIsScopedToProject(t *testing.T) {
	h := NewHub(4)
	x := h.Subscribe("p1")
	z := h.Subscribe("p2")

	h.Publish(Event{ProjectID: "p1", Type: TypeCursor, UserID: "u2"})

	select {
	case <-x.Events():
	default:
		t.Fatalf("p1 subscriber should have received the event")
	}
	select {
	case ev := <-z.Events():
		t.Fatalf("p2 subscriber should receive nothing, got %#v", ev)
	default:
	}
}

func TestPublishToProjectWithoutSubscribers(t *testing.T) {
	h := NewHub(4)
	h.Publish(Event{ProjectID: "ghost", Type: TypeCursor})
	if h.ProjectCount() != 0 {
		t.Fatalf("publishing must not create registry entries")
	}
}

func TestDeliverReportsGoneChannel(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe("p1")
	h.Unsubscribe(a)
	if got := h.deliver(a, Event{ProjectID: "p1"}); got != failedGone {
		t.Fatalf("expected failedGone for unsubscribed channel, got %d", got)
	}
}

func TestDuplicateSubscriptionsAllowed(t *testing.T) {
	// One client may hold several channels for the same project; the
	// registry tracks each independently.
	h := NewHub(4)
	a := h.Subscribe("p1")
	b := h.Subscribe("p1")
	h.Publish(Event{ProjectID: "p1", Type: TypeToolChange, UserID: "u1"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("both channels should have the event queued")
	}
}
