package mqtt

// Message is the envelope published for every dispatch event.
type Message struct {
	MessageID string  `json:"message_id"`
	RunID     string  `json:"run_id"`
	Type      string  `json:"type"`
	TaxiID    string  `json:"taxi_id,omitempty"`
	At        float64 `json:"at_s"`
	Data      any     `json:"data,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// CustomerRequest is a ride request received from outside the engine.
type CustomerRequest struct {
	ID      string `json:"id"`
	Pickup  int64  `json:"pickup"`
	Dropoff int64  `json:"dropoff"`
}

// Publisher sends dispatch messages to a broker.
type Publisher interface {
	// Publish sends msg on topic and returns the message identifier.
	Publish(topic string, msg Message) (string, error)
}

// RequestSource delivers ride requests as they arrive.
type RequestSource interface {
	OnRequest(func(CustomerRequest))
}
