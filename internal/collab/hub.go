package collab

import "sync"

const defaultSendBuffer = 64

// Channel is one subscriber's queue of outbound events. The session that
// created it owns its lifecycle; the hub only records membership and closes
// the queue when the channel is unsubscribed.
type Channel struct {
	projectID string
	ch        chan Event
}

func (c *Channel) ProjectID() string {
	return c.projectID
}

// Events yields the channel's queue. It is closed on unsubscribe, explicit or
// after a failed delivery.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

type deliveryResult int

const (
	delivered deliveryResult = iota
	failedGone
	failedBackpressure
)

// Hub maps project ids to the channels currently watching them. It is the
// only shared mutable state in the fan-out path; one mutex guards the whole
// mapping and reads go through snapshots.
type Hub struct {
	mu   sync.RWMutex
	buf  int
	subs map[string]map[*Channel]struct{}
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Hub{
		buf:  sendBuffer,
		subs: map[string]map[*Channel]struct{}{},
	}
}

func (h *Hub) Subscribe(projectID string) *Channel {
	c := &Channel{
		projectID: projectID,
		ch:        make(chan Event, h.buf),
	}
	h.mu.Lock()
	if _, ok := h.subs[projectID]; !ok {
		h.subs[projectID] = map[*Channel]struct{}{}
	}
	h.subs[projectID][c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes the channel and closes its queue. Safe to call more
// than once; the membership check guards the close.
func (h *Hub) Unsubscribe(c *Channel) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[c.projectID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.ch)
	if len(set) == 0 {
		delete(h.subs, c.projectID)
	}
}

// Subscribers returns a snapshot so a channel disconnecting mid-broadcast
// cannot corrupt iteration. No ordering guarantee.
func (h *Hub) Subscribers(projectID string) []*Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.subs[projectID]
	out := make([]*Channel, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Publish fans the event out to every current subscriber of its project.
// Delivery is best effort: a channel that cannot take the event right now is
// unsubscribed so later publishes stop retrying it. One bad recipient never
// blocks the rest, and events from a single caller reach each live
// subscriber in publish order.
func (h *Hub) Publish(ev Event) {
	for _, c := range h.Subscribers(ev.ProjectID) {
		if h.deliver(c, ev) != delivered {
			h.Unsubscribe(c)
		}
	}
}

func (h *Hub) deliver(c *Channel, ev Event) deliveryResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set, ok := h.subs[c.projectID]
	if !ok {
		return failedGone
	}
	if _, ok := set[c]; !ok {
		return failedGone
	}
	select {
	case c.ch <- ev:
		return delivered
	default:
		return failedBackpressure
	}
}

// ProjectCount reports how many projects currently have at least one
// subscriber. Empty sets are evicted, so this doubles as a leak check.
func (h *Hub) ProjectCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) SubscriberCount(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}
