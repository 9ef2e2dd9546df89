package mqtt

import (
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// Published is a message recorded by MockPublisher.
type Published struct {
	Topic   string
	Message coremqtt.Message
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Messages []Published
	FailOn   map[string]bool
	mu       sync.Mutex
	handlers []func(coremqtt.CustomerRequest)
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailOn: make(map[string]bool)}
}

// Publish records the message or returns an error if its topic is
// configured to fail.
func (m *MockPublisher) Publish(topic string, msg coremqtt.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOn[topic] {
		return "", fmt.Errorf("publish failed")
	}
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("msg-%d", len(m.Messages))
	}
	m.Messages = append(m.Messages, Published{Topic: topic, Message: msg})
	return msg.MessageID, nil
}

// Snapshot returns a copy of the recorded messages.
func (m *MockPublisher) Snapshot() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.Messages...)
}

// OnRequest registers a request handler.
func (m *MockPublisher) OnRequest(h func(coremqtt.CustomerRequest)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// Receive hands req to every registered handler as if it came from the
// broker.
func (m *MockPublisher) Receive(req coremqtt.CustomerRequest) {
	m.mu.Lock()
	hs := append([]func(coremqtt.CustomerRequest){}, m.handlers...)
	m.mu.Unlock()
	for _, h := range hs {
		h(req)
	}
}

// Disconnect is a no-op.
func (m *MockPublisher) Disconnect() {}
