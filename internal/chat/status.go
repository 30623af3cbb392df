package chat

import "github.com/starford/vantage/internal/sse"

// BrokerStatus fans status updates out to all SSE subscribers.
type BrokerStatus struct {
	broker *sse.Broker
}

// NewBrokerStatus wraps a broker as a dispatch.StatusSink.
func NewBrokerStatus(broker *sse.Broker) *BrokerStatus {
	return &BrokerStatus{broker: broker}
}

// SetStatus broadcasts the indicator text; empty clears it.
func (s *BrokerStatus) SetStatus(message string) {
	s.broker.PublishStatus(message)
}
