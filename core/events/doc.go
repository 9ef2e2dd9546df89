// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - PickupEvent: a taxi loaded a waiting customer
//   - DeliveryEvent: a taxi dropped a customer at its destination
//   - RefuelEvent: a taxi filled its tank at a gas station
//   - StateEvent: a taxi changed dispatch state
//   - StepFailedEvent: one agent step failed and was isolated
package events
