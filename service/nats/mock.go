package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu           sync.RWMutex
	published    []*SaleMessage
	publishError error
	closed       bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		published: make([]*SaleMessage, 0),
	}
}

// PublishSale records the message and returns any configured error.
func (m *MockPublisher) PublishSale(ctx context.Context, msg *SaleMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.published = append(m.published, msg)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublished returns a copy of all published messages.
func (m *MockPublisher) GetPublished() []*SaleMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := make([]*SaleMessage, len(m.published))
	copy(msgs, m.published)
	return msgs
}

// GetPublishedForProject returns messages published for a specific project address.
func (m *MockPublisher) GetPublishedForProject(address string) []*SaleMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := make([]*SaleMessage, 0)
	for _, msg := range m.published {
		if msg.ProjectAddress == address {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// SetPublishError configures the mock to return an error on PublishSale.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
