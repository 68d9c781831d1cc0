package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"petalpaint/internal/models"
)

// Broker is the message bus order events travel over between instances.
type Broker interface {
	Publish(ctx context.Context, body []byte) error
}

// BrokerPublisher sends order events to the broker instead of the local
// hub. Every instance consumes the broker and feeds its own hub through
// Hub.HandleDelivery.
type BrokerPublisher struct {
	broker Broker
}

func NewBrokerPublisher(broker Broker) *BrokerPublisher {
	return &BrokerPublisher{broker: broker}
}

func (p *BrokerPublisher) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	return p.broker.Publish(ctx, body)
}
