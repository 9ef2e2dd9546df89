package mqtt

import (
	"context"
	"fmt"
	"strings"

	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/infra/logger"
	"github.com/kilianp07/taxigrad/internal/eventbus"
)

// DefaultTopicPrefix is used when the config leaves the prefix empty.
const DefaultTopicPrefix = "taxigrad"

// EventTopic returns the topic carrying the events of one taxi.
func EventTopic(prefix, taxiID string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return fmt.Sprintf("%s/taxi/%s/events", strings.TrimSuffix(prefix, "/"), taxiID)
}

// StartBridge forwards dispatch events from the bus to the broker until the
// context is canceled or the bus is closed. Publish errors are logged and
// never block the engine.
func StartBridge(ctx context.Context, bus eventbus.EventBus, pub coremqtt.Publisher, prefix, runID string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log := logger.New("mqtt_bridge")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				msg, ok := coremqtt.FromEvent(runID, ev)
				if !ok {
					continue
				}
				if _, err := pub.Publish(EventTopic(prefix, msg.TaxiID), msg); err != nil {
					log.Warnf("forward %s for %s: %v", msg.Type, msg.TaxiID, err)
				}
			}
		}
	}()
	return done
}
