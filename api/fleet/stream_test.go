package fleet

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/taxigrad/core/events"
	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

func TestEventStream_PushesEvents(t *testing.T) {
	bus := eventbus.New()
	srv := httptest.NewServer(NewEventStream(bus, "run", nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The server subscribes after the handshake; publish until the first
	// event gets through.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tk := time.NewTicker(10 * time.Millisecond)
		defer tk.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tk.C:
				bus.Publish(events.PickupEvent{TaxiID: "t1", CustomerID: "c1"})
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg coremqtt.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "pickup" || msg.TaxiID != "t1" || msg.RunID != "run" {
		t.Fatalf("unexpected message %#v", msg)
	}
}

func TestEventStream_RejectsOrigin(t *testing.T) {
	srv := httptest.NewServer(NewEventStream(eventbus.New(), "run", []string{"http://ok.example"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("expected handshake failure")
	}
}
