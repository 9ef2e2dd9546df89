package mqtt

import "github.com/kilianp07/taxigrad/core/events"

// FromEvent converts a bus event into a broker message. It reports false
// for events that are not forwarded.
func FromEvent(runID string, ev any) (Message, bool) {
	msg := Message{RunID: runID}
	switch e := ev.(type) {
	case events.PickupEvent:
		msg.Type, msg.TaxiID, msg.At = "pickup", e.TaxiID, e.At.Seconds()
		msg.Data = map[string]any{"customer_id": e.CustomerID, "node": e.Node, "wait_s": e.Wait.Seconds()}
	case events.DeliveryEvent:
		msg.Type, msg.TaxiID, msg.At = "delivery", e.TaxiID, e.At.Seconds()
		msg.Data = map[string]any{"customer_id": e.CustomerID, "node": e.Node, "trip_s": e.Trip.Seconds()}
	case events.RefuelEvent:
		msg.Type, msg.TaxiID, msg.At = "refuel", e.TaxiID, e.At.Seconds()
		msg.Data = map[string]any{"station_id": e.StationID, "node": e.Node, "fuel": e.FuelLevel}
	case events.StateEvent:
		msg.Type, msg.TaxiID, msg.At = "state", e.TaxiID, e.At.Seconds()
		msg.Data = map[string]any{"from": e.From.String(), "to": e.To.String()}
	case events.StepFailedEvent:
		msg.Type, msg.TaxiID, msg.At = "step_failed", e.TaxiID, e.At.Seconds()
		if e.Err != nil {
			msg.Data = map[string]any{"error": e.Err.Error()}
		}
	default:
		return msg, false
	}
	return msg, true
}
