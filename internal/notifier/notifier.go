// Package notifier subscribes to the lifecycle event stream and logs
// every table/bill/order event, the hook point for waiter-facing
// notifications.
package notifier

import (
	"context"

	"restaurant-tables/internal/connections/rabbitmq"
	"restaurant-tables/internal/logger"
)

type Notifier struct {
	client *rabbitmq.Client
	lg     *logger.Logger
}

func New(client *rabbitmq.Client) *Notifier {
	return &Notifier{client: client, lg: logger.New("notifier")}
}

// Run consumes the notifications queue until ctx is canceled.
func (n *Notifier) Run(ctx context.Context) error {
	deliveries, err := n.client.Consume(rabbitmq.NotificationsQueue, "notifier", 10)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			n.lg.Info("event_received", map[string]any{
				"routing_key": d.RoutingKey,
				"body":        string(d.Body),
			})
			_ = d.Ack(false)
		}
	}
}
