// Package events publishes table/bill/order lifecycle events. Publishing
// is best-effort: a broker failure is logged by the caller and never
// fails the operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"restaurant-tables/internal/connections/rabbitmq"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// AMQPPublisher sends events to the tables.events topic exchange.
type AMQPPublisher struct {
	client *rabbitmq.Client
}

func NewAMQPPublisher(client *rabbitmq.Client) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", routingKey, err)
	}
	return p.client.Publish(ctx, rabbitmq.EventsExchange, routingKey, body)
}

// NopPublisher drops events; used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
