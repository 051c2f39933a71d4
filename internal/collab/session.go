package collab

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 2 * time.Second

// Session pumps one websocket connection: inbound frames are relayed to the
// hub, hub events are written back out. It subscribes on start and
// unsubscribes on any exit path, so a disconnect is observed without waiting
// for another inbound message.
type Session struct {
	hub          *Hub
	conn         *websocket.Conn
	projectID    string
	writeTimeout time.Duration
}

func NewSession(hub *Hub, conn *websocket.Conn, projectID string, writeTimeout time.Duration) *Session {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Session{
		hub:          hub,
		conn:         conn,
		projectID:    projectID,
		writeTimeout: writeTimeout,
	}
}

// Run blocks until the connection is gone. The caller owns the connection;
// Run closes it before returning.
func (s *Session) Run() {
	ch := s.hub.Subscribe(s.projectID)
	done := make(chan struct{})
	go s.writeLoop(ch, done)

	s.readLoop()

	s.hub.Unsubscribe(ch)
	_ = s.conn.Close()
	<-done
}

// readLoop relays inbound events verbatim. A transport error or a frame that
// is not valid JSON ends the session; other subscribers are unaffected.
func (s *Session) readLoop() {
	for {
		var ev Event
		if err := s.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("collab session closed project=%s err=%v", s.projectID, err)
			}
			return
		}
		ev.ProjectID = s.projectID
		s.hub.Publish(ev)
	}
}

func (s *Session) writeLoop(ch *Channel, done chan<- struct{}) {
	defer close(done)
	for ev := range ch.Events() {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteJSON(ev); err != nil {
			s.hub.Unsubscribe(ch)
			_ = s.conn.Close()
			// Drain until the hub closes the queue.
			for range ch.Events() {
			}
			return
		}
	}
	// Queue closed: pruned by the hub or unsubscribed by readLoop. Closing
	// the connection unblocks a pending read.
	_ = s.conn.Close()
}
