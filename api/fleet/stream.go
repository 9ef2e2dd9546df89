package fleet

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

const writeWait = 5 * time.Second

// EventStream pushes dispatch events to websocket clients on /api/events.
// Every client gets its own bus subscription; a client whose buffer fills up
// misses events rather than slowing the engine.
type EventStream struct {
	bus      eventbus.EventBus
	runID    string
	upgrader websocket.Upgrader
	log      logger.Logger
}

// NewEventStream builds the stream. An empty origins list accepts any origin.
func NewEventStream(bus eventbus.EventBus, runID string, origins []string) *EventStream {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &EventStream{
		bus:   bus,
		runID: runID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		log: logger.New("event-stream"),
	}
}

func (s *EventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	// The read loop only detects the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(time.Second))
				return
			}
			msg, ok := coremqtt.FromEvent(s.runID, ev)
			if !ok {
				continue
			}
			b, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}
}
