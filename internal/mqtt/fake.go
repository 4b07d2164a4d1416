package mqtt

import "sync"

// Message is one recorded publish.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher records publishes for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains every successful publish in order.
	Messages []Message

	// PublishError, if set, is returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the message.
func (f *FakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Sent returns a copy of the recorded messages.
func (f *FakePublisher) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// SetError sets the error returned by subsequent publishes.
func (f *FakePublisher) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishError = err
}
